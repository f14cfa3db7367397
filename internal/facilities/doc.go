// Package facilities is a client for the U-M Buildings API (v2).
//
// Two resources are used:
//   - BuildingInfo: every building in the system
//   - RoomInfo/{BuildingRecordNumber}: every room in one building
//
// Both are plain authenticated GETs returning the full list in one
// response; there is no pagination. A building with no rooms comes back with a
// null ListOfRooms and is reported as an empty slice.
//
// # Example Usage
//
//	client := facilities.NewClient(cfg.API.BaseURL)
//	buildings, err := client.ListBuildings(ctx, token)
//	if err != nil {
//	    return err
//	}
//	rooms, err := client.GetRooms(ctx, token, buildings[0].RecordNumber)
package facilities
