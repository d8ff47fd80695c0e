package repository

import (
	"fmt"

	"realm-tracker/internal/db"
	"realm-tracker/internal/domain"
)

func toDBPlayerSnapshot(snapshotID string, p domain.PlayerRecord) db.PlayerSnapshot {
	return db.PlayerSnapshot{
		SnapshotID:          snapshotID,
		LordID:              p.LordID,
		Name:                p.Name,
		AllianceID:          p.AllianceID,
		AllianceTag:         p.AllianceTag,
		Division:            p.Division,
		Faction:             p.Faction,
		CityLevel:           p.CityLevel,
		Power:               p.Power.String(),
		HighestPower:        p.HighestPower.String(),
		Merits:              p.Merits.String(),
		BuildingPower:       p.BuildingPower.String(),
		HeroPower:           p.HeroPower.String(),
		LegionPower:         p.LegionPower.String(),
		TechPower:           p.TechPower.String(),
		UnitsKilled:         p.UnitsKilled.String(),
		T1Kills:             p.T1Kills.String(),
		T2Kills:             p.T2Kills.String(),
		T3Kills:             p.T3Kills.String(),
		T4Kills:             p.T4Kills.String(),
		T5Kills:             p.T5Kills.String(),
		UnitsDead:           p.UnitsDead.String(),
		UnitsHealed:         p.UnitsHealed.String(),
		Victories:           p.Victories,
		Defeats:             p.Defeats,
		Gold:                p.Gold.String(),
		GoldSpent:           p.GoldSpent.String(),
		Wood:                p.Wood.String(),
		WoodSpent:           p.WoodSpent.String(),
		Ore:                 p.Ore.String(),
		OreSpent:            p.OreSpent.String(),
		Mana:                p.Mana.String(),
		ManaSpent:           p.ManaSpent.String(),
		Gems:                p.Gems.String(),
		GemsSpent:           p.GemsSpent.String(),
		ResourcesGiven:      p.ResourcesGiven.String(),
		ResourcesGivenCount: p.ResourcesGivenCount,
		HelpsGiven:          p.HelpsGiven,
		CitySieges:          p.CitySieges,
		Scouted:             p.Scouted,
	}
}

// countReader collects the first bad stored counter instead of failing per field.
type countReader struct {
	lordID string
	err    error
}

func (c *countReader) read(field, raw string) domain.Count {
	v, ok := domain.ParseCount(raw)
	if !ok && c.err == nil {
		c.err = domain.NewStorageError("decode player snapshot", fmt.Errorf("lord %s: invalid %s %q", c.lordID, field, raw))
	}
	return v
}

func toDomainPlayerRecord(p db.PlayerSnapshot) (domain.PlayerRecord, error) {
	c := &countReader{lordID: p.LordID}
	record := domain.PlayerRecord{
		LordID:              p.LordID,
		Name:                p.Name,
		AllianceID:          p.AllianceID,
		AllianceTag:         p.AllianceTag,
		Division:            p.Division,
		Faction:             p.Faction,
		CityLevel:           p.CityLevel,
		Power:               c.read("power", p.Power),
		HighestPower:        c.read("highest_power", p.HighestPower),
		Merits:              c.read("merits", p.Merits),
		BuildingPower:       c.read("building_power", p.BuildingPower),
		HeroPower:           c.read("hero_power", p.HeroPower),
		LegionPower:         c.read("legion_power", p.LegionPower),
		TechPower:           c.read("tech_power", p.TechPower),
		UnitsKilled:         c.read("units_killed", p.UnitsKilled),
		T1Kills:             c.read("t1_kills", p.T1Kills),
		T2Kills:             c.read("t2_kills", p.T2Kills),
		T3Kills:             c.read("t3_kills", p.T3Kills),
		T4Kills:             c.read("t4_kills", p.T4Kills),
		T5Kills:             c.read("t5_kills", p.T5Kills),
		UnitsDead:           c.read("units_dead", p.UnitsDead),
		UnitsHealed:         c.read("units_healed", p.UnitsHealed),
		Victories:           p.Victories,
		Defeats:             p.Defeats,
		Gold:                c.read("gold", p.Gold),
		GoldSpent:           c.read("gold_spent", p.GoldSpent),
		Wood:                c.read("wood", p.Wood),
		WoodSpent:           c.read("wood_spent", p.WoodSpent),
		Ore:                 c.read("ore", p.Ore),
		OreSpent:            c.read("ore_spent", p.OreSpent),
		Mana:                c.read("mana", p.Mana),
		ManaSpent:           c.read("mana_spent", p.ManaSpent),
		Gems:                c.read("gems", p.Gems),
		GemsSpent:           c.read("gems_spent", p.GemsSpent),
		ResourcesGiven:      c.read("resources_given", p.ResourcesGiven),
		ResourcesGivenCount: p.ResourcesGivenCount,
		HelpsGiven:          p.HelpsGiven,
		CitySieges:          p.CitySieges,
		Scouted:             p.Scouted,
	}
	return record, c.err
}
