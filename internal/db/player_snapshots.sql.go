package db

import (
	"context"
	"time"
)

const playerSnapshotColumns = `ps.snapshot_id, ps.lord_id, ps.name, ps.alliance_id, ps.alliance_tag, ps.division, ps.faction, ps.city_level,
    ps.power, ps.highest_power, ps.merits, ps.building_power, ps.hero_power, ps.legion_power, ps.tech_power,
    ps.units_killed, ps.t1_kills, ps.t2_kills, ps.t3_kills, ps.t4_kills, ps.t5_kills, ps.units_dead, ps.units_healed,
    ps.victories, ps.defeats,
    ps.gold, ps.gold_spent, ps.wood, ps.wood_spent, ps.ore, ps.ore_spent, ps.mana, ps.mana_spent, ps.gems, ps.gems_spent,
    ps.resources_given, ps.resources_given_count, ps.helps_given, ps.city_sieges, ps.scouted`

func playerSnapshotDest(i *PlayerSnapshot) []interface{} {
	return []interface{}{
		&i.SnapshotID, &i.LordID, &i.Name, &i.AllianceID, &i.AllianceTag, &i.Division, &i.Faction, &i.CityLevel,
		&i.Power, &i.HighestPower, &i.Merits, &i.BuildingPower, &i.HeroPower, &i.LegionPower, &i.TechPower,
		&i.UnitsKilled, &i.T1Kills, &i.T2Kills, &i.T3Kills, &i.T4Kills, &i.T5Kills, &i.UnitsDead, &i.UnitsHealed,
		&i.Victories, &i.Defeats,
		&i.Gold, &i.GoldSpent, &i.Wood, &i.WoodSpent, &i.Ore, &i.OreSpent, &i.Mana, &i.ManaSpent, &i.Gems, &i.GemsSpent,
		&i.ResourcesGiven, &i.ResourcesGivenCount, &i.HelpsGiven, &i.CitySieges, &i.Scouted,
	}
}

const insertPlayerSnapshot = `-- name: InsertPlayerSnapshot :exec
INSERT INTO player_snapshots (
    snapshot_id, lord_id, name, alliance_id, alliance_tag, division, faction, city_level,
    power, highest_power, merits, building_power, hero_power, legion_power, tech_power,
    units_killed, t1_kills, t2_kills, t3_kills, t4_kills, t5_kills, units_dead, units_healed,
    victories, defeats,
    gold, gold_spent, wood, wood_spent, ore, ore_spent, mana, mana_spent, gems, gems_spent,
    resources_given, resources_given_count, helps_given, city_sieges, scouted
) VALUES (
    ?, ?, ?, ?, ?, ?, ?, ?,
    ?, ?, ?, ?, ?, ?, ?,
    ?, ?, ?, ?, ?, ?, ?, ?,
    ?, ?,
    ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
    ?, ?, ?, ?, ?
)
`

func (q *Queries) InsertPlayerSnapshot(ctx context.Context, arg PlayerSnapshot) error {
	_, err := q.db.ExecContext(ctx, insertPlayerSnapshot,
		arg.SnapshotID, arg.LordID, arg.Name, arg.AllianceID, arg.AllianceTag, arg.Division, arg.Faction, arg.CityLevel,
		arg.Power, arg.HighestPower, arg.Merits, arg.BuildingPower, arg.HeroPower, arg.LegionPower, arg.TechPower,
		arg.UnitsKilled, arg.T1Kills, arg.T2Kills, arg.T3Kills, arg.T4Kills, arg.T5Kills, arg.UnitsDead, arg.UnitsHealed,
		arg.Victories, arg.Defeats,
		arg.Gold, arg.GoldSpent, arg.Wood, arg.WoodSpent, arg.Ore, arg.OreSpent, arg.Mana, arg.ManaSpent, arg.Gems, arg.GemsSpent,
		arg.ResourcesGiven, arg.ResourcesGivenCount, arg.HelpsGiven, arg.CitySieges, arg.Scouted,
	)
	return err
}

// Ordering by (length, text) sorts canonical non-negative decimals numerically.
const listPlayerSnapshotsBySnapshot = `-- name: ListPlayerSnapshotsBySnapshot :many
SELECT ` + playerSnapshotColumns + `
FROM player_snapshots ps
WHERE ps.snapshot_id = ?1
  AND (?2 = '' OR ps.alliance_tag = ?2)
  AND (?3 = '' OR ps.name LIKE '%' || ?3 || '%' OR ps.lord_id = ?3)
ORDER BY LENGTH(ps.power) DESC, ps.power DESC, ps.lord_id
`

type ListPlayerSnapshotsBySnapshotParams struct {
	SnapshotID  string
	AllianceTag string
	Search      string
}

func (q *Queries) ListPlayerSnapshotsBySnapshot(ctx context.Context, arg ListPlayerSnapshotsBySnapshotParams) ([]PlayerSnapshot, error) {
	rows, err := q.db.QueryContext(ctx, listPlayerSnapshotsBySnapshot, arg.SnapshotID, arg.AllianceTag, arg.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PlayerSnapshot
	for rows.Next() {
		var i PlayerSnapshot
		if err := rows.Scan(playerSnapshotDest(&i)...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPlayerSnapshotHistory = `-- name: ListPlayerSnapshotHistory :many
SELECT ` + playerSnapshotColumns + `, s.timestamp
FROM player_snapshots ps
JOIN snapshots s ON s.id = ps.snapshot_id
WHERE ps.lord_id = ?
ORDER BY s.timestamp ASC, s.created_at ASC
`

type ListPlayerSnapshotHistoryRow struct {
	PlayerSnapshot
	SnapshotTimestamp time.Time
}

func (q *Queries) ListPlayerSnapshotHistory(ctx context.Context, lordID string) ([]ListPlayerSnapshotHistoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listPlayerSnapshotHistory, lordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListPlayerSnapshotHistoryRow
	for rows.Next() {
		var i ListPlayerSnapshotHistoryRow
		dest := append(playerSnapshotDest(&i.PlayerSnapshot), &i.SnapshotTimestamp)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPreviousAlliance = `-- name: GetPreviousAlliance :one
SELECT ps.alliance_tag, ps.alliance_id
FROM player_snapshots ps
JOIN snapshots s ON s.id = ps.snapshot_id
WHERE ps.lord_id = ? AND ps.snapshot_id != ? AND s.timestamp <= ?
ORDER BY s.timestamp DESC, s.created_at DESC
LIMIT 1
`

type GetPreviousAllianceParams struct {
	LordID            string
	ExcludeSnapshotID string
	AtOrBefore        time.Time
}

type GetPreviousAllianceRow struct {
	AllianceTag string
	AllianceID  string
}

func (q *Queries) GetPreviousAlliance(ctx context.Context, arg GetPreviousAllianceParams) (GetPreviousAllianceRow, error) {
	row := q.db.QueryRowContext(ctx, getPreviousAlliance, arg.LordID, arg.ExcludeSnapshotID, arg.AtOrBefore)
	var i GetPreviousAllianceRow
	err := row.Scan(&i.AllianceTag, &i.AllianceID)
	return i, err
}

const getLatestPower = `-- name: GetLatestPower :one
SELECT ps.power
FROM player_snapshots ps
JOIN snapshots s ON s.id = ps.snapshot_id
WHERE ps.lord_id = ?
ORDER BY s.timestamp DESC, s.created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestPower(ctx context.Context, lordID string) (string, error) {
	row := q.db.QueryRowContext(ctx, getLatestPower, lordID)
	var power string
	err := row.Scan(&power)
	return power, err
}

const countPlayerSnapshots = `-- name: CountPlayerSnapshots :one
SELECT COUNT(*) FROM player_snapshots WHERE snapshot_id = ?
`

func (q *Queries) CountPlayerSnapshots(ctx context.Context, snapshotID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPlayerSnapshots, snapshotID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
