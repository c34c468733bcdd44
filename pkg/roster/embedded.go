package roster

// Embedded fallback tables. These cover the identities that appear most
// frequently in recordings so resolution keeps working when the reference
// file is missing. The CSV file is authoritative when present.

const defaultProgramLead = "Jenny"

func defaultStaffDomains() []string {
	return []string{"ascendprep.com", "ascendprep.org"}
}

func defaultAdminAccounts() map[string]bool {
	return map[string]bool{
		"admin":            true,
		"ascend admin":     true,
		"ascend prep":      true,
		"operations":       true,
		"ops":              true,
		"academy support":  true,
		"support":          true,
		"billing":          true,
		"front desk":       true,
		"program manager":  true,
		"ascend helpdesk":  true,
		"recording bot":    true,
		"notetaker":        true,
		"meeting recorder": true,
	}
}

// DefaultCoaches returns the embedded coach table used when no coach
// configuration is supplied.
func DefaultCoaches() []Coach {
	return []Coach{
		{FullName: "Jenny Duan", FirstName: "Jenny", Aliases: []string{"jduan", "jenny d", "jennyduan"}},
		{FullName: "Jamie JudahBram", FirstName: "Jamie", Aliases: []string{"jamie jb", "jamiejudahbram", "jjudahbram"}},
		{FullName: "Marcus Lee", FirstName: "Marcus", Aliases: []string{"marc", "mlee"}},
		{FullName: "Priya Raman", FirstName: "Priya", Aliases: []string{"praman", "priya r"}},
		{FullName: "Sofia Alvarez", FirstName: "Sofia", Aliases: []string{"sofi", "salvarez"}},
	}
}

// DefaultStudentAliases returns the embedded student alias table used when
// no reference file is configured.
func DefaultStudentAliases() map[string]string {
	return embeddedStudentAliases()
}

func embeddedStudentAliases() map[string]string {
	students := map[string][]string{
		"Huda":    {"huda", "huda k"},
		"Arshiya": {"arshiya", "arshi"},
		"Maya":    {"maya", "maya p", "mrs patel"}, // guardian alias
		"Daniel":  {"daniel", "danny", "dan w"},
		"Leila":   {"leila", "lei"},
		"Rohan":   {"rohan", "ro"},
	}

	table := make(map[string]string)
	for canonical, aliases := range students {
		table[canonical] = canonical
		for _, a := range aliases {
			addAlias(table, a, canonical)
		}
	}
	return table
}

// defaultCommonNames is the fallback list used by transcript frequency
// voting when a speaker is not in the alias table. Kept deliberately short:
// a wide list would misread staff and guests as students.
func defaultCommonNames() map[string]bool {
	names := []string{
		"aiden", "alex", "amir", "ana", "anna", "aryan", "ava", "chloe",
		"daniel", "david", "diya", "emma", "ethan", "grace", "hannah",
		"isha", "jack", "jacob", "james", "julia", "kabir", "karen",
		"kevin", "leila", "liam", "lily", "lucas", "maya", "mia",
		"michael", "nina", "noah", "olivia", "omar", "priya", "rahul",
		"riya", "rohan", "ryan", "sara", "sarah", "sophia", "zara",
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
