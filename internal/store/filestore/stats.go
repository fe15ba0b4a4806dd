package filestore

import "context"

type statsDoc struct {
	Views int64 `json:"views"`
}

type StatsStore struct {
	file *jsonFile[statsDoc]
}

func NewStatsStore(dir string) *StatsStore {
	return &StatsStore{file: newJSONFile[statsDoc](dir, StatsFile)}
}

func (s *StatsStore) IncrementViews(_ context.Context) (int64, error) {
	var views int64
	err := s.file.update(func(d statsDoc) (statsDoc, error) {
		d.Views++
		views = d.Views
		return d, nil
	})
	return views, err
}

func (s *StatsStore) Views(_ context.Context) (int64, error) {
	d, err := s.file.read()
	return d.Views, err
}
