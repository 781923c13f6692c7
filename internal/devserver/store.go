package devserver

import (
	"errors"
	"sync"
	"time"

	"github.com/cuongbtq/csv-upload-client/internal/domain"
	"github.com/google/uuid"
)

// ErrUploadNotFound is returned when no upload matches the requested file id
var ErrUploadNotFound = errors.New("upload not found")

// Upload is one file accepted by the dev server
type Upload struct {
	FileID    string
	FileName  string
	Rows      int
	Failure   string // non-empty when the file will be reported FAILED
	Polls     int
	CreatedAt time.Time
}

// Store keeps uploads in memory for the lifetime of the process
type Store struct {
	mu              sync.RWMutex
	uploads         map[string]*Upload
	processingPolls int
}

// NewStorage creates a store whose uploads answer "processing" for
// processingPolls status queries before reaching a terminal status
func NewStorage(processingPolls int) *Store {
	return &Store{
		uploads:         make(map[string]*Upload),
		processingPolls: processingPolls,
	}
}

// CreateUpload registers a new upload and assigns its file id
func (s *Store) CreateUpload(fileName string, rows int, failure string) *Upload {
	upload := &Upload{
		FileID:    uuid.NewString(),
		FileName:  fileName,
		Rows:      rows,
		Failure:   failure,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.uploads[upload.FileID] = upload
	s.mu.Unlock()

	return upload
}

// GetUpload returns a copy of the upload with the given file id
func (s *Store) GetUpload(fileID string) (Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	upload, ok := s.uploads[fileID]
	if !ok {
		return Upload{}, ErrUploadNotFound
	}
	return *upload, nil
}

// RecordPoll counts one status query and returns the state to report
func (s *Store) RecordPoll(fileID string) (domain.JobState, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	upload, ok := s.uploads[fileID]
	if !ok {
		return domain.JobStateError, "", ErrUploadNotFound
	}

	upload.Polls++
	return s.stateLocked(upload), upload.Failure, nil
}

// State returns the current state without counting a poll
func (s *Store) State(fileID string) (domain.JobState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	upload, ok := s.uploads[fileID]
	if !ok {
		return domain.JobStateError, ErrUploadNotFound
	}
	return s.stateLocked(upload), nil
}

func (s *Store) stateLocked(upload *Upload) domain.JobState {
	if upload.Polls <= s.processingPolls {
		return domain.JobStateProcessing
	}
	if upload.Failure != "" {
		return domain.JobStateFailed
	}
	return domain.JobStateProcessed
}
