package db

import (
	"database/sql"
	"time"
)

type Upload struct {
	ID          string
	Filename    string
	SizeBytes   int64
	Checksum    string
	Status      string
	Error       string
	CreatedAt   time.Time
	CompletedAt sql.NullTime
}

type Snapshot struct {
	ID          string
	KingdomID   string
	Timestamp   time.Time
	Filename    string
	UploadID    string
	SeasonID    sql.NullString
	PlayerCount int64
	CreatedAt   time.Time
}

type Player struct {
	LordID       string
	KingdomID    string
	CurrentName  string
	LastSeenAt   time.Time
	HasLeftRealm bool
	LeftRealmAt  sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlayerSnapshot keeps counters as decimal strings, exactly as stored.
type PlayerSnapshot struct {
	SnapshotID          string
	LordID              string
	Name                string
	AllianceID          string
	AllianceTag         string
	Division            int64
	Faction             string
	CityLevel           int64
	Power               string
	HighestPower        string
	Merits              string
	BuildingPower       string
	HeroPower           string
	LegionPower         string
	TechPower           string
	UnitsKilled         string
	T1Kills             string
	T2Kills             string
	T3Kills             string
	T4Kills             string
	T5Kills             string
	UnitsDead           string
	UnitsHealed         string
	Victories           int64
	Defeats             int64
	Gold                string
	GoldSpent           string
	Wood                string
	WoodSpent           string
	Ore                 string
	OreSpent            string
	Mana                string
	ManaSpent           string
	Gems                string
	GemsSpent           string
	ResourcesGiven      string
	ResourcesGivenCount int64
	HelpsGiven          int64
	CitySieges          int64
	Scouted             int64
}

type NameChange struct {
	ID         string
	LordID     string
	OldName    string
	NewName    string
	DetectedAt time.Time
	SnapshotID string
}

type AllianceChange struct {
	ID             string
	LordID         string
	OldAllianceTag string
	OldAllianceID  string
	NewAllianceTag string
	NewAllianceID  string
	DetectedAt     time.Time
	SnapshotID     string
}
