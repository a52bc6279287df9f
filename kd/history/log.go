package history

// Log collects epoch records during a training run. Records are append-only;
// the slice is never mutated after append so tests can inspect it freely.
type Log struct {
	records []EpochRecord
}

// NewLog creates a Log ready for recording.
func NewLog() *Log {
	return &Log{records: make([]EpochRecord, 0)}
}

// Record appends one epoch record.
func (l *Log) Record(rec EpochRecord) {
	l.records = append(l.records, rec)
}

// Records returns the recorded epochs in append order.
func (l *Log) Records() []EpochRecord {
	return l.records
}

// Len returns the number of recorded epochs.
func (l *Log) Len() int {
	return len(l.records)
}

// Last returns the most recent record, or a zero record if none exist.
func (l *Log) Last() EpochRecord {
	if len(l.records) == 0 {
		return EpochRecord{}
	}
	return l.records[len(l.records)-1]
}
