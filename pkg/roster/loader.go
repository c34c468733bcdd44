package roster

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/sessionarc/sessionarc/pkg/logging"
)

// Student table CSV columns. The reference file is exported from the program
// tracker, so the layout is fixed even though two columns are unused.
const (
	colID = iota
	colCanonicalName
	colFirstName
	colLastName
	colUnused1
	colAliases
	colSecondaryName
	colUnused2
	colSecondaryAliases
	columnCount
)

// LoadStudentTable reads the row-oriented student reference file and returns
// a map of lower-cased alias -> canonical first name.
//
// Each row declares a canonical student, a `|`-delimited alias list, and an
// optional secondary identity (typically a guardian) whose aliases resolve to
// the same student. A missing or unparsable file is a degraded-mode
// condition, not an error: the embedded fallback table is returned and a
// warning is logged. This function never fails.
func LoadStudentTable(path string, logger logging.Logger) map[string]string {
	if logger == nil {
		logger = logging.MustGlobal()
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("student reference file unavailable, using embedded table",
			logging.F("path", path),
			logging.Err(err))
		return embeddedStudentAliases()
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // Tolerate ragged rows.

	rows, err := reader.ReadAll()
	if err != nil {
		logger.Warn("student reference file unparsable, using embedded table",
			logging.F("path", path),
			logging.Err(err))
		return embeddedStudentAliases()
	}

	table := make(map[string]string)
	loaded := 0
	for i, row := range rows {
		if i == 0 && looksLikeHeader(row) {
			continue
		}
		if len(row) <= colFirstName {
			continue
		}

		canonical := strings.TrimSpace(row[colFirstName])
		if canonical == "" {
			canonical = firstToken(strings.TrimSpace(row[colCanonicalName]))
		}
		if canonical == "" {
			continue
		}
		canonical = Capitalize(canonical)

		addAlias(table, row[colCanonicalName], canonical)
		addAlias(table, row[colFirstName], canonical)
		if len(row) > colLastName {
			full := strings.TrimSpace(row[colFirstName]) + " " + strings.TrimSpace(row[colLastName])
			addAlias(table, full, canonical)
		}
		if len(row) > colAliases {
			for _, alias := range strings.Split(row[colAliases], "|") {
				addAlias(table, alias, canonical)
			}
		}
		// Secondary identity (guardian/proxy) resolves to the same student.
		if len(row) > colSecondaryName {
			addAlias(table, row[colSecondaryName], canonical)
		}
		if len(row) > colSecondaryAliases {
			for _, alias := range strings.Split(row[colSecondaryAliases], "|") {
				addAlias(table, alias, canonical)
			}
		}
		loaded++
	}

	if loaded == 0 {
		logger.Warn("student reference file contained no usable rows, using embedded table",
			logging.F("path", path))
		return embeddedStudentAliases()
	}

	logger.Debug("student reference table loaded",
		logging.F("path", path),
		logging.F("students", loaded),
		logging.F("aliases", len(table)))
	return table
}

func addAlias(table map[string]string, alias, canonical string) {
	key := strings.ToLower(NormalizeName(alias))
	if key == "" {
		return
	}
	table[key] = canonical
}

func looksLikeHeader(row []string) bool {
	if len(row) < 2 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return first == "id" || first == "internal id" || first == "#"
}
