package facilities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var testToken = &oauth2.Token{AccessToken: "abc123", TokenType: "Bearer"}

func newAPI(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *Client {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			h(w, r)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func respond(body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestClient_ListBuildings(t *testing.T) {
	client := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /BuildingInfo": respond(`{"ListOfBldgs":{"BuildingData":[
			{"BuildingRecordNumber":"1000066","BuildingLongDescription":"Angell Hall",
			 "BuildingStreetNumber":"435","BuildingStreetName":"S State St",
			 "BuildingCity":"Ann Arbor","BuildingState":"MI","BuildingPostal":"48109"},
			{"BuildingRecordNumber":"1005092","BuildingLongDescription":"Bob and Betty Beyster Building",
			 "BuildingCity":"Ann Arbor","BuildingState":"MI"}
		]}}`),
	})

	buildings, err := client.ListBuildings(context.Background(), testToken)
	require.NoError(t, err)
	require.Len(t, buildings, 2)

	assert.Equal(t, Building{
		RecordNumber:    "1000066",
		LongDescription: "Angell Hall",
		StreetNumber:    "435",
		StreetName:      "S State St",
		City:            "Ann Arbor",
		State:           "MI",
		Postal:          "48109",
	}, buildings[0])
	assert.Equal(t, "435 S State St Ann Arbor MI", buildings[0].Address())
	assert.Equal(t, "Ann Arbor MI", buildings[1].Address())
}

func TestClient_ListBuildings_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing ListOfBldgs", body: `{"Buildings":[]}`},
		{name: "null ListOfBldgs", body: `{"ListOfBldgs":null}`},
		{name: "missing BuildingData", body: `{"ListOfBldgs":{}}`},
		{name: "renamed BuildingData", body: `{"ListOfBldgs":{"Buildings":[{"BuildingRecordNumber":"1"}]}}`},
		{name: "null BuildingData", body: `{"ListOfBldgs":{"BuildingData":null}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
				"GET /BuildingInfo": respond(tt.body),
			})

			buildings, err := client.ListBuildings(context.Background(), testToken)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse))
			assert.Nil(t, buildings)
		})
	}
}

func TestClient_ListBuildings_EmptyList(t *testing.T) {
	client := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /BuildingInfo": respond(`{"ListOfBldgs":{"BuildingData":[]}}`),
	})

	buildings, err := client.ListBuildings(context.Background(), testToken)
	require.NoError(t, err)
	assert.Empty(t, buildings)
}

func TestClient_ListBuildings_NotJSON(t *testing.T) {
	client := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /BuildingInfo": respond(`<html>gateway</html>`),
	})

	_, err := client.ListBuildings(context.Background(), testToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestClient_FetchError(t *testing.T) {
	client := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /BuildingInfo": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "token expired", http.StatusUnauthorized)
		},
		"GET /RoomInfo/{brn}": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})

	_, err := client.ListBuildings(context.Background(), testToken)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr), "expected *FetchError, got %T", err)
	assert.Equal(t, EndpointBuildingInfo, fetchErr.Endpoint)
	assert.Equal(t, http.StatusUnauthorized, fetchErr.Status)
	assert.Equal(t, "token expired", fetchErr.Body)

	_, err = client.GetRooms(context.Background(), testToken, "1000066")
	require.True(t, errors.As(err, &fetchErr), "expected *FetchError, got %T", err)
	assert.Equal(t, EndpointRoomInfo, fetchErr.Endpoint)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.Status)
}

func TestClient_GetRooms(t *testing.T) {
	client := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /RoomInfo/{brn}": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1000066", r.PathValue("brn"))
			respond(`{"ListOfRooms":{"RoomData":[
				{"RoomNumber":"1010","FloorNumber":"01","RoomTypeDescription":"Men's Restroom","RoomSquareFeet":210},
				{"RoomNumber":"B100","FloorNumber":"B1","RoomTypeDescription":"Mechanical Room"}
			]}}`)(w, r)
		},
	})

	rooms, err := client.GetRooms(context.Background(), testToken, "1000066")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Men's Restroom", rooms[0].TypeDescription)
	assert.Equal(t, "1010", rooms[0].RoomNumber)
	assert.Equal(t, "01", rooms[0].FloorNumber)
	assert.Equal(t, "Mechanical Room", rooms[1].TypeDescription)
}

func TestClient_GetRooms_NoRooms(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"null list", `{"ListOfRooms":null}`},
		{"absent list", `{}`},
		{"null room data", `{"ListOfRooms":{"RoomData":null}}`},
		{"empty room data", `{"ListOfRooms":{"RoomData":[]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newAPI(t, map[string]func(http.ResponseWriter, *http.Request){
				"GET /RoomInfo/{brn}": respond(tt.body),
			})

			rooms, err := client.GetRooms(context.Background(), testToken, "1000066")
			require.NoError(t, err)
			assert.NotNil(t, rooms)
			assert.Empty(t, rooms)
		})
	}
}

func TestClient_RequiresToken(t *testing.T) {
	client := NewClient("http://127.0.0.1:0")

	_, err := client.ListBuildings(context.Background(), nil)
	assert.Error(t, err)

	_, err = client.GetRooms(context.Background(), &oauth2.Token{}, "1")
	assert.Error(t, err)

	_, err = client.GetRooms(context.Background(), testToken, "")
	assert.Error(t, err)
}

func TestRoom_MarshalPreservesOriginal(t *testing.T) {
	in := `{"RoomNumber":"1010","RoomTypeDescription":"All Gender Restroom","RoomSquareFeet":210}`

	var room Room
	require.NoError(t, json.Unmarshal([]byte(in), &room))
	assert.Equal(t, "All Gender Restroom", room.TypeDescription)

	out, err := json.Marshal(room)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestRoom_MarshalConstructed(t *testing.T) {
	out, err := json.Marshal(Room{RoomNumber: "2", TypeDescription: "Lavatory"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"RoomNumber":"2","RoomTypeDescription":"Lavatory"}`, string(out))
}
