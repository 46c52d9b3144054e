package model

import (
	"database/sql/driver"
	"errors"
)

var ErrSlotTaken = errors.New("slot already booked")

// SlotLedger maps a date label to the time labels booked on that date. Labels
// are opaque strings supplied by clients.
type SlotLedger map[string][]string

func (l SlotLedger) IsBooked(date, time string) bool {
	for _, t := range l[date] {
		if t == time {
			return true
		}
	}
	return false
}

// Book records the slot or returns ErrSlotTaken if it is already present.
func (l SlotLedger) Book(date, time string) error {
	if l.IsBooked(date, time) {
		return ErrSlotTaken
	}
	l[date] = append(l[date], time)
	return nil
}

// Release removes the slot. Releasing a slot that is not booked is a no-op.
func (l SlotLedger) Release(date, time string) {
	times := l[date]
	kept := times[:0:0]
	for _, t := range times {
		if t != time {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l, date)
		return
	}
	l[date] = kept
}

func (l SlotLedger) Clone() SlotLedger {
	out := make(SlotLedger, len(l))
	for date, times := range l {
		out[date] = append([]string(nil), times...)
	}
	return out
}

func (l SlotLedger) Value() (driver.Value, error) {
	if l == nil {
		return []byte("{}"), nil
	}
	return jsonValue(l)
}

func (l *SlotLedger) Scan(src interface{}) error {
	*l = SlotLedger{}
	return jsonScan(src, l)
}
