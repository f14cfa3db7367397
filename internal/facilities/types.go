package facilities

import (
	"encoding/json"
	"strings"
)

// Building is one record from BuildingInfo.
type Building struct {
	RecordNumber      string `json:"BuildingRecordNumber"`
	LongDescription   string `json:"BuildingLongDescription"`
	ShortDescription  string `json:"BuildingShortDescription"`
	StreetNumber      string `json:"BuildingStreetNumber"`
	StreetName        string `json:"BuildingStreetName"`
	City              string `json:"BuildingCity"`
	State             string `json:"BuildingState"`
	Postal            string `json:"BuildingPostal"`
	CampusDescription string `json:"BuildingCampusDescription,omitempty"`
}

// Address assembles the free-text address used for geocoding:
// street number, street name, city and state separated by spaces.
func (b Building) Address() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{b.StreetNumber, b.StreetName, b.City, b.State} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Room is one record from RoomInfo. Rooms have no stable identifier of their
// own; they are identified by position within their building's list.
//
// The JSON object received from the API is retained, so marshalling a Room
// reproduces it unchanged, including fields not modelled here.
type Room struct {
	BuildingRecordNumber string `json:"BuildingRecordNumber,omitempty"`
	FloorNumber          string `json:"FloorNumber,omitempty"`
	RoomNumber           string `json:"RoomNumber,omitempty"`
	TypeDescription      string `json:"RoomTypeDescription"`
	DepartmentName       string `json:"RoomDepartmentName,omitempty"`

	raw json.RawMessage
}

// roomFields has Room's JSON shape without its methods.
type roomFields Room

// UnmarshalJSON decodes the modelled fields and keeps the original object.
func (r *Room) UnmarshalJSON(data []byte) error {
	var f roomFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Room(f)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the original object when the room was decoded from the
// API, and the modelled fields otherwise.
func (r Room) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(roomFields(r))
}

// buildingInfoResponse is the BuildingInfo payload.
type buildingInfoResponse struct {
	ListOfBldgs *struct {
		BuildingData []Building `json:"BuildingData"`
	} `json:"ListOfBldgs"`
}

// roomInfoResponse is the RoomInfo payload. Either level may be null.
type roomInfoResponse struct {
	ListOfRooms *struct {
		RoomData []Room `json:"RoomData"`
	} `json:"ListOfRooms"`
}
