package exam

import "strconv"

// Decode turns a persisted record into an Exam, checking required fields and
// the status enum instead of trusting the row.
func Decode(rec Record) (Exam, error) {
	var problems []string
	if rec.ID == "" {
		problems = append(problems, "missing id")
	}
	if rec.StudentID == "" {
		problems = append(problems, "missing studentId")
	}
	if rec.Subject == "" {
		problems = append(problems, "missing subject")
	}
	status := Status(rec.Status)
	if !status.Valid() {
		problems = append(problems, "unknown status "+strconv.Quote(rec.Status))
	}
	if len(problems) > 0 {
		return Exam{}, &DecodeError{ID: rec.ID, Problems: problems}
	}

	ex := Exam{
		ID:          rec.ID,
		StudentID:   rec.StudentID,
		StudentName: rec.StudentName,
		Subject:     rec.Subject,
		Status:      status,
		Room:        rec.Room,
	}
	if rec.DateTime.Valid {
		ex.DateTime = FormatTimestamp(rec.DateTime.Time)
	}
	return ex, nil
}

// decodeAll decodes every record, collecting failures instead of dropping them.
func decodeAll(recs []Record) Snapshot {
	snap := Snapshot{Exams: make([]Exam, 0, len(recs))}
	for _, rec := range recs {
		ex, err := Decode(rec)
		if err != nil {
			snap.Invalid = append(snap.Invalid, *err.(*DecodeError))
			continue
		}
		snap.Exams = append(snap.Exams, ex)
	}
	return snap
}
