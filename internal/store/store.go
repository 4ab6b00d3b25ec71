package store

import "database/sql"

// Store provides access to all storage repositories.
type Store struct {
	db          *sql.DB
	taskHistory *TaskHistoryStore
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:          db,
		taskHistory: NewTaskHistoryStore(NewQueryInterceptor(db)),
	}
}

func (s *Store) TaskHistory() *TaskHistoryStore {
	return s.taskHistory
}

func (s *Store) Close() error {
	return s.db.Close()
}
