// Package parser turns a roster export spreadsheet into validated player records.
package parser

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"realm-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Sheets tried when no sheet is named after the kingdom, then the sheet at
// fallbackSheetIndex.
var fallbackSheetNames = []string{"Sheet1", "Players", "Data"}

const fallbackSheetIndex = 1

// Column layout of the export, header in row 1.
const (
	colLordID = iota
	colName
	colAllianceID
	colAllianceTag
	colDivision
	colFaction
	colCityLevel
	colPower
	colHighestPower
	colMerits
	colBuildingPower
	colHeroPower
	colLegionPower
	colTechPower
	colUnitsKilled
	colT1Kills
	colT2Kills
	colT3Kills
	colT4Kills
	colT5Kills
	colUnitsDead
	colUnitsHealed
	colVictories
	colDefeats
	colGold
	colGoldSpent
	colWood
	colWoodSpent
	colOre
	colOreSpent
	colMana
	colManaSpent
	colGems
	colGemsSpent
	colResourcesGiven
	colResourcesGivenCount
	colHelpsGiven
	colCitySieges
	colScouted

	ColumnCount
)

type Parser struct {
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse reads one export. Bad rows are logged and skipped; a file that yields no
// players is rejected with a ValidationError.
func (p *Parser) Parse(filename string, r io.ReadSeeker) (*domain.ParsedRoster, error) {
	info, ext, err := ParseFilename(filename)
	if err != nil {
		return nil, err
	}

	log := p.logger.With().Str("filename", info.Filename).Str("kingdom", info.KingdomID).Logger()

	wb, err := openWorkbook(ext, r)
	if err != nil {
		return nil, domain.NewValidationError("cannot read spreadsheet %s: %v", info.Filename, err)
	}
	defer wb.Close()

	sheet, err := selectSheet(wb.SheetNames(), info.KingdomID)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("sheet", sheet).Msg("worksheet selected")

	rows, err := wb.Rows(sheet)
	if err != nil {
		return nil, domain.NewValidationError("cannot read worksheet %q: %v", sheet, err)
	}

	roster := &domain.ParsedRoster{FileInfo: info}
	seen := make(map[string]int)

	for i := 1; i < len(rows); i++ {
		rowNum := i + 1
		roster.RowCount++

		cells := rows[i]
		if strings.TrimSpace(cell(cells, colLordID)) == "" {
			continue
		}

		record, invalid, err := extractRow(cells)
		if err != nil {
			log.Warn().Err(err).Int("row", rowNum).Msg("skipping malformed row")
			continue
		}
		if len(invalid) > 0 {
			log.Warn().
				Str("lord_id", record.LordID).
				Int("row", rowNum).
				Strs("columns", invalid).
				Msg("unreadable counters stored as 0")
		}

		if first, dup := seen[record.LordID]; dup {
			log.Warn().
				Str("lord_id", record.LordID).
				Int("row", rowNum).
				Int("first_row", first).
				Msg("skipping duplicate lord id")
			continue
		}
		seen[record.LordID] = rowNum

		roster.Players = append(roster.Players, record)
	}

	if len(roster.Players) == 0 {
		return nil, domain.NewValidationError("no valid player rows found in sheet %q of %s", sheet, info.Filename)
	}

	log.Info().
		Int("players", len(roster.Players)).
		Int("rows", roster.RowCount).
		Msg("spreadsheet parsed")

	return roster, nil
}

func selectSheet(names []string, kingdomID string) (string, error) {
	for _, n := range names {
		if n == kingdomID {
			return n, nil
		}
	}
	for _, fallback := range fallbackSheetNames {
		for _, n := range names {
			if n == fallback {
				return n, nil
			}
		}
	}
	if len(names) > fallbackSheetIndex {
		return names[fallbackSheetIndex], nil
	}
	return "", domain.NewValidationError("no worksheet named %q or %s found; available sheets: [%s]",
		kingdomID, strings.Join(fallbackSheetNames, ", "), strings.Join(names, ", "))
}

// extractRow builds a record from one data row. Counter cells that cannot be
// read as integers are stored as 0 and their column letters returned.
func extractRow(cells []string) (domain.PlayerRecord, []string, error) {
	lordID, ok := domain.ParseCount(cleanNumber(cell(cells, colLordID)))
	if !ok || lordID.BigInt().Sign() <= 0 {
		return domain.PlayerRecord{}, nil, fmt.Errorf("invalid lord id %q", cell(cells, colLordID))
	}

	name := strings.TrimSpace(cell(cells, colName))
	if name == "" {
		return domain.PlayerRecord{}, nil, fmt.Errorf("lord %s has an empty name", lordID)
	}

	r := &rowReader{cells: cells}
	record := domain.PlayerRecord{
		LordID:      lordID.String(),
		Name:        name,
		AllianceID:  strings.TrimSpace(cell(cells, colAllianceID)),
		AllianceTag: strings.TrimSpace(cell(cells, colAllianceTag)),
		Division:    r.small(colDivision),
		Faction:     strings.TrimSpace(cell(cells, colFaction)),
		CityLevel:   r.small(colCityLevel),

		Power:         r.count(colPower),
		HighestPower:  r.count(colHighestPower),
		Merits:        r.count(colMerits),
		BuildingPower: r.count(colBuildingPower),
		HeroPower:     r.count(colHeroPower),
		LegionPower:   r.count(colLegionPower),
		TechPower:     r.count(colTechPower),

		UnitsKilled: r.count(colUnitsKilled),
		T1Kills:     r.count(colT1Kills),
		T2Kills:     r.count(colT2Kills),
		T3Kills:     r.count(colT3Kills),
		T4Kills:     r.count(colT4Kills),
		T5Kills:     r.count(colT5Kills),
		UnitsDead:   r.count(colUnitsDead),
		UnitsHealed: r.count(colUnitsHealed),
		Victories:   r.small(colVictories),
		Defeats:     r.small(colDefeats),

		Gold:      r.count(colGold),
		GoldSpent: r.count(colGoldSpent),
		Wood:      r.count(colWood),
		WoodSpent: r.count(colWoodSpent),
		Ore:       r.count(colOre),
		OreSpent:  r.count(colOreSpent),
		Mana:      r.count(colMana),
		ManaSpent: r.count(colManaSpent),
		Gems:      r.count(colGems),
		GemsSpent: r.count(colGemsSpent),

		ResourcesGiven:      r.count(colResourcesGiven),
		ResourcesGivenCount: r.small(colResourcesGivenCount),
		HelpsGiven:          r.small(colHelpsGiven),
		CitySieges:          r.small(colCitySieges),
		Scouted:             r.small(colScouted),
	}
	return record, r.invalid, nil
}

type rowReader struct {
	cells   []string
	invalid []string
}

func (r *rowReader) small(col int) int64 {
	n, ok := smallInt(cell(r.cells, col))
	if !ok {
		r.reject(col)
	}
	return n
}

func (r *rowReader) count(col int) domain.Count {
	c, ok := bigCount(cell(r.cells, col))
	if !ok {
		r.reject(col)
	}
	return c
}

func (r *rowReader) reject(col int) {
	name, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		name = strconv.Itoa(col + 1)
	}
	r.invalid = append(r.invalid, name)
}

func cell(cells []string, col int) string {
	if col >= len(cells) {
		return ""
	}
	return cells[col]
}

var separatorReplacer = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "_", "", "'", "")

func cleanNumber(s string) string {
	return separatorReplacer.Replace(strings.TrimSpace(s))
}

// smallInt parses counters that always fit an int64. Blank cells are 0;
// unreadable or fractional values are 0 and reported as not ok.
func smallInt(s string) (int64, bool) {
	s = cleanNumber(s)
	if s == "" {
		return 0, true
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// bigCount parses counters of unbounded magnitude. Blank cells are 0;
// unreadable values are 0 and reported as not ok.
func bigCount(s string) (domain.Count, bool) {
	s = cleanNumber(s)
	if s == "" {
		return domain.Count{}, true
	}
	c, ok := domain.ParseCount(s)
	if !ok {
		return domain.Count{}, false
	}
	return c, true
}
