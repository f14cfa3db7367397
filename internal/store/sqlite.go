package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/flushfinder/flushfinder/internal/facilities"
	"github.com/flushfinder/flushfinder/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS building (
	id                      INTEGER PRIMARY KEY,
	building_record_number  TEXT NOT NULL UNIQUE,
	building_name           TEXT NOT NULL,
	building_address_number TEXT,
	building_street         TEXT,
	building_lat            REAL,
	building_long           REAL
);

CREATE TABLE IF NOT EXISTS rooms (
	room_id                INTEGER PRIMARY KEY AUTOINCREMENT,
	building_record_number TEXT NOT NULL REFERENCES building (building_record_number),
	room_number            TEXT,
	floor                  TEXT,
	room_type              TEXT
);

CREATE INDEX IF NOT EXISTS rooms_building ON rooms (building_record_number);

CREATE TABLE IF NOT EXISTS reviews (
	id         TEXT PRIMARY KEY,
	room_id    INTEGER NOT NULL REFERENCES rooms (room_id),
	user_id    TEXT NOT NULL,
	stars      INTEGER NOT NULL CHECK (stars BETWEEN 1 AND 5),
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS reviews_room ON reviews (room_id);
`

const dropSchema = `
DROP TABLE IF EXISTS reviews;
DROP TABLE IF EXISTS rooms;
DROP TABLE IF EXISTS building;
`

// ErrUnknownRoom is returned when a review names a room that does not exist.
var ErrUnknownRoom = errors.New("unknown room")

// Building is a row of the building table.
type Building struct {
	ID            int     `db:"id" json:"id"`
	RecordNumber  string  `db:"building_record_number" json:"building_record_number"`
	Name          string  `db:"building_name" json:"building_name"`
	AddressNumber string  `db:"building_address_number" json:"building_address_number"`
	Street        string  `db:"building_street" json:"building_street"`
	Lat           float64 `db:"building_lat" json:"building_lat"`
	Long          float64 `db:"building_long" json:"building_long"`
}

// Room is a row of the rooms table.
type Room struct {
	ID                   int64  `db:"room_id" json:"room_id"`
	BuildingRecordNumber string `db:"building_record_number" json:"building_record_number"`
	RoomNumber           string `db:"room_number" json:"room_number"`
	Floor                string `db:"floor" json:"floor"`
	Type                 string `db:"room_type" json:"room_type"`
}

// Review is a row of the reviews table. CreatedAt is SQLite's
// "YYYY-MM-DD HH:MM:SS" UTC text.
type Review struct {
	ID        string `db:"id" json:"id"`
	RoomID    int64  `db:"room_id" json:"room_id"`
	UserID    string `db:"user_id" json:"user_id"`
	Stars     int    `db:"stars" json:"stars"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// RoomSummary aggregates the reviews of one room. AvgStars and LastReviewAt
// are nil when the room has no reviews.
type RoomSummary struct {
	RoomID       int64    `db:"-" json:"room_id"`
	ReviewCount  int      `db:"review_count" json:"review_count"`
	AvgStars     *float64 `db:"avg_stars" json:"avg_stars"`
	LastReviewAt *string  `db:"last_review_at" json:"last_review_at"`
}

var _ report.Sink = (*SQLite)(nil)

// SQLite is the seed database.
type SQLite struct {
	db *sqlx.DB
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*SQLite, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Init creates any missing tables and leaves existing data alone.
func (s *SQLite) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Reset drops and recreates all tables.
func (s *SQLite) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, dropSchema); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return tx.Commit()
}

// SaveBuilding stores a reported building and its restrooms in one
// transaction. The building id is the record's report index.
func (s *SQLite) SaveBuilding(ctx context.Context, rec report.Record, restrooms []facilities.Room) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO building (id, building_record_number, building_name,
			building_address_number, building_street, building_lat, building_long)
		VALUES (:id, :building_record_number, :building_name,
			:building_address_number, :building_street, :building_lat, :building_long)`,
		Building{
			ID:            rec.Index,
			RecordNumber:  rec.BRN,
			Name:          rec.Description,
			AddressNumber: rec.StreetNumber,
			Street:        rec.StreetName,
			Lat:           rec.Lat,
			Long:          rec.Lng,
		})
	if err != nil {
		return fmt.Errorf("failed to insert building %s: %w", rec.BRN, err)
	}

	for _, r := range restrooms {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO rooms (building_record_number, room_number, floor, room_type)
			VALUES (:building_record_number, :room_number, :floor, :room_type)`,
			Room{
				BuildingRecordNumber: rec.BRN,
				RoomNumber:           r.RoomNumber,
				Floor:                r.FloorNumber,
				Type:                 r.TypeDescription,
			})
		if err != nil {
			return fmt.Errorf("failed to insert room %s of building %s: %w", r.RoomNumber, rec.BRN, err)
		}
	}

	return tx.Commit()
}

// Buildings returns every building, newest id first.
func (s *SQLite) Buildings(ctx context.Context) ([]Building, error) {
	out := []Building{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, building_record_number, building_name, building_address_number,
		       building_street, building_lat, building_long
		  FROM building
		 ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list buildings: %w", err)
	}
	return out, nil
}

// Rooms returns the restrooms of one building ordered by floor and number.
func (s *SQLite) Rooms(ctx context.Context, brn string) ([]Room, error) {
	out := []Room{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT room_id, building_record_number, room_number, floor, room_type
		  FROM rooms
		 WHERE building_record_number = ?
		 ORDER BY floor, room_number`, brn)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms of %s: %w", brn, err)
	}
	return out, nil
}

// AddReview stores a review under a new random id and returns the stored row.
// Stars must be between 1 and 5.
func (s *SQLite) AddReview(ctx context.Context, roomID int64, userID string, stars int) (Review, error) {
	if stars < 1 || stars > 5 {
		return Review{}, fmt.Errorf("stars must be between 1 and 5, got %d", stars)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Review{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM rooms WHERE room_id = ?)", roomID); err != nil {
		return Review{}, fmt.Errorf("failed to look up room %d: %w", roomID, err)
	}
	if !exists {
		return Review{}, fmt.Errorf("room %d: %w", roomID, ErrUnknownRoom)
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reviews (id, room_id, user_id, stars, created_at)
		VALUES (?, ?, ?, ?, datetime('now'))`,
		id, roomID, userID, stars)
	if err != nil {
		return Review{}, fmt.Errorf("failed to insert review of room %d: %w", roomID, err)
	}

	var review Review
	err = tx.GetContext(ctx, &review, "SELECT id, room_id, user_id, stars, created_at FROM reviews WHERE id = ?", id)
	if err != nil {
		return Review{}, fmt.Errorf("failed to read review %s: %w", id, err)
	}
	return review, tx.Commit()
}

// Reviews returns the reviews of one room, newest first.
func (s *SQLite) Reviews(ctx context.Context, roomID int64) ([]Review, error) {
	out := []Review{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, room_id, user_id, stars, created_at
		  FROM reviews
		 WHERE room_id = ?
		 ORDER BY datetime(created_at) DESC, rowid DESC`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews of room %d: %w", roomID, err)
	}
	return out, nil
}

// RoomSummary returns the review count, average stars and latest review
// time of one room.
func (s *SQLite) RoomSummary(ctx context.Context, roomID int64) (RoomSummary, error) {
	var summary RoomSummary
	err := s.db.GetContext(ctx, &summary, `
		SELECT COUNT(*)        AS review_count,
		       AVG(stars)      AS avg_stars,
		       MAX(created_at) AS last_review_at
		  FROM reviews
		 WHERE room_id = ?`, roomID)
	if err != nil {
		return RoomSummary{}, fmt.Errorf("failed to summarize room %d: %w", roomID, err)
	}
	summary.RoomID = roomID
	return summary, nil
}
