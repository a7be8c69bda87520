package models

import "strings"

// Demand is a course section that needs a room for a semester. Column names
// follow the course-offering import feed.
type Demand struct {
	ID             string `db:"id" json:"id"`
	SemesterID     string `db:"semester" json:"semester"`
	DisciplineCode string `db:"codigo_disciplina" json:"codigo_disciplina"`
	DisciplineName string `db:"nome_disciplina" json:"nome_disciplina"`
	ProfessorsRaw  string `db:"professores" json:"professores"`
	Section        string `db:"turma" json:"turma"`
	Enrollment     int    `db:"vagas" json:"vagas"`
	RawSchedule    string `db:"horario_sigaa_bruto" json:"horario_sigaa_bruto"`
	Level          string `db:"nivel" json:"nivel"`
}

var professorSeparators = strings.NewReplacer(";", ",", "\n", ",", " e ", ",", " E ", ",")

// Professors splits the joined professor names of the import feed.
func (d Demand) Professors() []string {
	raw := professorSeparators.Replace(d.ProfessorsRaw)
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		name := strings.Join(strings.Fields(part), " ")
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}

// HasProfessor reports whether the named professor teaches the section.
func (d Demand) HasProfessor(name string) bool {
	target := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if target == "" {
		return false
	}
	for _, professor := range d.Professors() {
		if strings.ToLower(professor) == target {
			return true
		}
	}
	return false
}
