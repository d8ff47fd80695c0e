package domain

import (
	"time"
)

type UploadStatus string

const (
	UploadProcessing UploadStatus = "processing"
	UploadCompleted  UploadStatus = "completed"
	UploadFailed     UploadStatus = "failed"
)

type Upload struct {
	ID          string       `json:"id"`
	Filename    string       `json:"filename"`
	SizeBytes   int64        `json:"sizeBytes"`
	Checksum    string       `json:"checksum"` // sha256 hex
	Status      UploadStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

type Snapshot struct {
	ID          string    `json:"id"` // nanoid
	KingdomID   string    `json:"kingdomId"`
	Timestamp   time.Time `json:"timestamp"`
	Filename    string    `json:"filename"`
	UploadID    string    `json:"uploadId"`
	SeasonID    string    `json:"seasonId,omitempty"`
	PlayerCount int       `json:"playerCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PlayerRecord is one roster row as exported by the game.
type PlayerRecord struct {
	LordID      string `json:"lordId"`
	Name        string `json:"name"`
	AllianceID  string `json:"allianceId"`
	AllianceTag string `json:"allianceTag"`
	Division    int64  `json:"division"`
	Faction     string `json:"faction"`
	CityLevel   int64  `json:"cityLevel"`

	Power         Count `json:"power"`
	HighestPower  Count `json:"highestPower"`
	Merits        Count `json:"merits"`
	BuildingPower Count `json:"buildingPower"`
	HeroPower     Count `json:"heroPower"`
	LegionPower   Count `json:"legionPower"`
	TechPower     Count `json:"techPower"`

	UnitsKilled Count `json:"unitsKilled"`
	T1Kills     Count `json:"t1Kills"`
	T2Kills     Count `json:"t2Kills"`
	T3Kills     Count `json:"t3Kills"`
	T4Kills     Count `json:"t4Kills"`
	T5Kills     Count `json:"t5Kills"`
	UnitsDead   Count `json:"unitsDead"`
	UnitsHealed Count `json:"unitsHealed"`
	Victories   int64 `json:"victories"`
	Defeats     int64 `json:"defeats"`

	Gold      Count `json:"gold"`
	GoldSpent Count `json:"goldSpent"`
	Wood      Count `json:"wood"`
	WoodSpent Count `json:"woodSpent"`
	Ore       Count `json:"ore"`
	OreSpent  Count `json:"oreSpent"`
	Mana      Count `json:"mana"`
	ManaSpent Count `json:"manaSpent"`
	Gems      Count `json:"gems"`
	GemsSpent Count `json:"gemsSpent"`

	ResourcesGiven      Count `json:"resourcesGiven"`
	ResourcesGivenCount int64 `json:"resourcesGivenCount"`
	HelpsGiven          int64 `json:"helpsGiven"`
	CitySieges          int64 `json:"citySieges"`
	Scouted             int64 `json:"scouted"`
}

type PlayerSnapshot struct {
	SnapshotID string    `json:"snapshotId"`
	SnapshotAt time.Time `json:"snapshotAt"`
	PlayerRecord
}

type Player struct {
	LordID       string     `json:"lordId"`
	KingdomID    string     `json:"kingdomId"`
	CurrentName  string     `json:"currentName"`
	LastSeenAt   time.Time  `json:"lastSeenAt"`
	HasLeftRealm bool       `json:"hasLeftRealm"`
	LeftRealmAt  *time.Time `json:"leftRealmAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

type NameChange struct {
	ID         string    `json:"id"`
	LordID     string    `json:"lordId"`
	OldName    string    `json:"oldName"`
	NewName    string    `json:"newName"`
	DetectedAt time.Time `json:"detectedAt"`
	SnapshotID string    `json:"snapshotId"`
}

type AllianceChange struct {
	ID             string    `json:"id"`
	LordID         string    `json:"lordId"`
	OldAllianceTag string    `json:"oldAllianceTag"`
	OldAllianceID  string    `json:"oldAllianceId"`
	NewAllianceTag string    `json:"newAllianceTag"`
	NewAllianceID  string    `json:"newAllianceId"`
	DetectedAt     time.Time `json:"detectedAt"`
	SnapshotID     string    `json:"snapshotId"`
}

// AllianceRef is the alliance a player belonged to in one snapshot.
type AllianceRef struct {
	Tag string
	ID  string
}

type FileInfo struct {
	KingdomID string    `json:"kingdomId"`
	Timestamp time.Time `json:"timestamp"`
	Filename  string    `json:"filename"`
}

type ParsedRoster struct {
	FileInfo FileInfo
	Players  []PlayerRecord
	RowCount int
}

type ChangeCounts struct {
	NameChanges     int `json:"nameChanges"`
	AllianceChanges int `json:"allianceChanges"`
}

type IngestionSummary struct {
	Snapshot            Snapshot     `json:"snapshot"`
	PlayersProcessed    int          `json:"playersProcessed"`
	ChangesDetected     ChangeCounts `json:"changesDetected"`
	PlayersMarkedAsLeft int          `json:"playersMarkedAsLeft"`
	NamesCorrected      int          `json:"namesCorrected"`
	RowCount            int          `json:"rowCount"`
}

type PlayerSnapshotFilter struct {
	AllianceTag string
	Search      string
}

type ChangeFilter struct {
	From   *time.Time
	To     *time.Time
	Search string
	LordID string
	Limit  int
}
