package journal

import "errors"

// Multi fans every event out to all journals. Errors are collected, not
// short-circuited, so one failing sink never starves another.
type Multi struct {
	journals []Journal
}

// NewMulti combines journals into one. Nil entries are skipped.
func NewMulti(journals ...Journal) *Multi {
	m := &Multi{}
	for _, j := range journals {
		if j != nil {
			m.journals = append(m.journals, j)
		}
	}
	return m
}

func (m *Multi) RecordFetch(evt *FetchEvent) error {
	return m.each(func(j Journal) error { return j.RecordFetch(evt) })
}

func (m *Multi) RecordReset(evt *ResetEvent) error {
	return m.each(func(j Journal) error { return j.RecordReset(evt) })
}

func (m *Multi) RecordStatus(evt *StatusEvent) error {
	return m.each(func(j Journal) error { return j.RecordStatus(evt) })
}

func (m *Multi) Close() error {
	return m.each(func(j Journal) error { return j.Close() })
}

func (m *Multi) each(fn func(Journal) error) error {
	var errs []error
	for _, j := range m.journals {
		if err := fn(j); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
