// Package backup uploads encrypted snapshots of the court document to
// S3-compatible storage and restores them.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/gavel/internal/court"
	"github.com/dukerupert/gavel/internal/model"
	"github.com/dukerupert/gavel/internal/store"
)

var (
	ErrNotConfigured = errors.New("backup not configured")
	ErrNotFound      = errors.New("backup not found")
	ErrNotRestorable = errors.New("backup did not complete")
)

type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Documents loads and replaces the whole court document.
type Documents interface {
	Load() (*model.AppState, error)
	Replace(state *model.AppState) error
}

type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3         S3Config
	Passphrase string
	// Interval between scheduled snapshots. Zero disables the schedule.
	Interval time.Duration
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// StatusCallback is invoked after every state change.
type StatusCallback func(Status)

// Manager runs snapshots on demand and on a schedule.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback

	docs    Documents
	records *store.BackupStore
	client  s3Client
	logger  *slog.Logger
	now     func() time.Time

	// run serialises snapshots and restores.
	run sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, docs Documents, records *store.BackupStore, logger *slog.Logger, callback StatusCallback) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:      cfg,
		docs:     docs,
		records:  records,
		callback: callback,
		logger:   logger.With("component", "backup"),
		now:      time.Now,
		status:   Status{State: StateDisabled},
	}
	if cfg.S3.complete() && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether storage and a passphrase are configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// Start runs scheduled snapshots until ctx is cancelled or Stop is called.
// It does nothing when backups are disabled or no interval is set.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil || m.cfg.Interval <= 0 {
		m.mu.Unlock()
		return
	}
	interval := m.cfg.Interval
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	m.logger.Info("scheduled backups enabled", "interval", interval)
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
			}
		}
	}()
}

// Stop waits for the schedule loop to exit. Safe to call without Start.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// List returns recent snapshots, newest first.
func (m *Manager) List(limit int) ([]model.Backup, error) {
	backups, err := m.records.List(limit)
	if err != nil {
		return nil, err
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	return backups, nil
}

// RunNow exports, encrypts and uploads the current document.
func (m *Manager) RunNow(ctx context.Context) (*model.Backup, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()
	if client == nil {
		return nil, ErrNotConfigured
	}

	m.run.Lock()
	defer m.run.Unlock()

	m.setStatus(Status{State: StateRunning})

	key := fmt.Sprintf("%s/%s.json.enc", model.StateKey, m.now().UTC().Format("2006-01-02T150405.000Z"))
	record, err := m.records.Create(key)
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	size, err := m.upload(ctx, client, bucket, key, passphrase)
	if err != nil {
		if markErr := m.records.MarkFailed(record.ID, err.Error()); markErr != nil {
			m.logger.Error("mark backup failed", "id", record.ID, "error", markErr)
		}
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, err
	}

	if err := m.records.MarkCompleted(record.ID, size); err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, err
	}
	now := m.now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup uploaded", "id", record.ID, "key", key, "bytes", size)

	return m.records.GetByID(record.ID)
}

func (m *Manager) upload(ctx context.Context, client s3Client, bucket, key, passphrase string) (int64, error) {
	state, err := m.docs.Load()
	if err != nil {
		return 0, fmt.Errorf("load document: %w", err)
	}
	plain, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("marshal document: %w", err)
	}
	sealed, err := Seal(plain, passphrase)
	if err != nil {
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}
	return int64(len(sealed)), nil
}

// Restore downloads snapshot id, decrypts it and replaces the stored
// document. Nothing is written unless the snapshot decrypts and validates.
func (m *Manager) Restore(ctx context.Context, id int64) (*model.AppState, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	passphrase := m.cfg.Passphrase
	m.mu.RUnlock()
	if client == nil {
		return nil, ErrNotConfigured
	}

	record, err := m.records.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	if record == nil {
		return nil, ErrNotFound
	}
	if record.Status != model.BackupStatusCompleted {
		return nil, ErrNotRestorable
	}

	m.run.Lock()
	defer m.run.Unlock()

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	plain, err := Open(sealed, passphrase)
	if err != nil {
		return nil, err
	}

	var state model.AppState
	if err := json.Unmarshal(plain, &state); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	state.DeviceRole = nil
	if err := court.ValidateDocument(&state); err != nil {
		return nil, err
	}
	if err := m.docs.Replace(&state); err != nil {
		return nil, fmt.Errorf("replace document: %w", err)
	}

	m.logger.Info("backup restored", "id", id, "rules", len(state.Rules), "violations", len(state.Violations))
	return &state, nil
}
