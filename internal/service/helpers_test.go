package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/divyanshu1906/CrowdFunding-Website/internal/database"
	"github.com/divyanshu1906/CrowdFunding-Website/internal/models"
	"github.com/divyanshu1906/CrowdFunding-Website/pkg/payment"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", PasswordHash: "x", Role: "creator"}
	require.NoError(t, db.Create(u).Error)
	return u
}

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	mp3Bytes = append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)
)

func file(name string, content []byte) MediaFile {
	return MediaFile{Name: name, Size: int64(len(content)), Content: bytes.NewReader(content)}
}

func filePtr(name string, content []byte) *MediaFile {
	f := file(name, content)
	return &f
}

// memStore is an in-memory MediaStore. failOn makes Save fail for that file name.
type memStore struct {
	mu      sync.Mutex
	seq     int
	blobs   map[string]string
	removed []string
	failOn  string
}

func newMemStore() *memStore {
	return &memStore{blobs: map[string]string{}}
}

func (m *memStore) Save(ctx context.Context, kind, folder string, f MediaFile) (StoredMedia, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && f.Name == m.failOn {
		return StoredMedia{}, errors.New("store unavailable")
	}
	m.seq++
	ref := fmt.Sprintf("%s/%d-%s", folder, m.seq, f.Name)
	m.blobs[ref] = kind
	return StoredMedia{URL: "https://cdn.test/" + ref, Ref: ref}, nil
}

func (m *memStore) Remove(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, ref)
	m.removed = append(m.removed, ref)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

// fakeGateway signs like the real gateway and records order requests.
type fakeGateway struct {
	mu       sync.Mutex
	secret   string
	err      error
	requests []payment.OrderRequest
	seq      int
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	g.seq++
	return &payment.Order{ID: fmt.Sprintf("order_%d", g.seq), Amount: req.AmountMinor, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return payment.VerifyPaymentSignature(orderID, paymentID, signature, g.secret)
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

type recordingNotifier struct {
	mu      sync.Mutex
	updates []models.Payment
}

func (n *recordingNotifier) PaymentUpdated(p *models.Payment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, *p)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.updates)
}

func strPtr(s string) *string { return &s }
