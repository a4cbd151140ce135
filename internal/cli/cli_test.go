package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/youvisa/internal/config"
	"github.com/aretw0/youvisa/internal/logging"
	"github.com/aretw0/youvisa/pkg/adapters/memory"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
	"github.com/aretw0/youvisa/pkg/session"
)

type fixedClassifier string

func (c fixedClassifier) Classify(ctx context.Context, doc ports.Upload, allowed domain.Labels) (string, error) {
	return string(c), nil
}

type silentAssistant struct{}

func (silentAssistant) Reply(ctx context.Context, text string, chat *domain.ChatContext) (string, error) {
	return "ok", nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		TransportToken:   "token",
		OpenAIKey:        "key",
		DBDriver:         "memory",
		StorageDir:       t.TempDir(),
		ActiveTaskPolicy: "allow",
		MatchMode:        "first",
		MaxInputSize:     4096,
		LogLevel:         "info",
	}
}

func TestParseCatalogue(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		entries, err := ParseCatalogue(strings.NewReader(`
countries:
  - name: Canadá
    required_docs: [passaporte, foto]
  - name: Japão
`))
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "Canadá", entries[0].Name)
		assert.Equal(t, []string{"passaporte", "foto"}, entries[0].RequiredDocs)
		assert.Empty(t, entries[1].RequiredDocs)
	})

	t.Run("Empty file", func(t *testing.T) {
		entries, err := ParseCatalogue(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Missing name", func(t *testing.T) {
		_, err := ParseCatalogue(strings.NewReader("countries:\n  - required_docs: [foto]\n"))
		assert.ErrorContains(t, err, "country #1 has no name")
	})

	t.Run("Unknown field", func(t *testing.T) {
		_, err := ParseCatalogue(strings.NewReader("countries:\n  - name: Chile\n    docs: [foto]\n"))
		assert.Error(t, err)
	})
}

func TestLoadCatalogue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.yaml")
	require.NoError(t, os.WriteFile(path, []byte("countries:\n  - name: Chile\n"), 0o644))

	entries, err := LoadCatalogue(path)
	require.NoError(t, err)
	assert.Equal(t, []CatalogueEntry{{Name: "Chile"}}, entries)

	_, err = LoadCatalogue(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestImportCountries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewTaskStore()
	entries := []CatalogueEntry{
		{Name: " Canadá ", RequiredDocs: []string{"passaporte", "foto", "passaporte"}},
		{Name: "Japão"},
	}

	res, err := ImportCountries(ctx, store, entries)
	require.NoError(t, err)
	assert.Equal(t, []string{"Canadá", "Japão"}, res.Added)
	assert.Empty(t, res.Skipped)

	res, err = ImportCountries(ctx, store, entries)
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Equal(t, []string{"Canadá", "Japão"}, res.Skipped)

	c, err := store.GetCountryByName(ctx, "Canadá")
	require.NoError(t, err)
	assert.Equal(t, domain.Labels{"passaporte", "foto"}, c.RequiredDocs)
}

func seededStore(t *testing.T) *memory.TaskStore {
	t.Helper()
	ctx := context.Background()
	store := memory.NewTaskStore()
	uid, err := store.AddUser(ctx, "u1", "Ana Souza", "12345678900")
	require.NoError(t, err)
	cid, err := store.AddCountry(ctx, "Canadá", domain.NewLabels("passaporte", "foto"))
	require.NoError(t, err)
	tid, err := store.CreateTask(ctx, uid, cid)
	require.NoError(t, err)
	_, err = store.AddDocument(ctx, tid, "foto", "u1/1_x.png")
	require.NoError(t, err)
	return store
}

func TestWriteReport(t *testing.T) {
	details, err := seededStore(t).GetAllTaskDetails(context.Background())
	require.NoError(t, err)

	t.Run("Table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, details, false))
		out := buf.String()
		assert.Contains(t, out, "TASK")
		assert.Contains(t, out, "Ana Souza")
		assert.Contains(t, out, "IN_PROGRESS")
		assert.Contains(t, out, "passaporte")
		assert.NotContains(t, out, "12345678900")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, details, true))
		var decoded []domain.TaskDetails
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded, 1)
		assert.Equal(t, "Canadá", decoded[0].Country.Name)
	})

	t.Run("Empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, nil, false))
		assert.Equal(t, "No tasks yet.\n", buf.String())

		buf.Reset()
		require.NoError(t, WriteReport(&buf, nil, true))
		assert.Equal(t, "[]\n", buf.String())
	})
}

func TestWriteCountries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCountries(&buf, []domain.Country{
		{ID: 1, Name: "Canadá", RequiredDocs: domain.Labels{"passaporte", "foto"}},
		{ID: 2, Name: "Japão"},
	}))
	out := buf.String()
	assert.Contains(t, out, "passaporte, foto")
	assert.Contains(t, out, "Japão")
	assert.Contains(t, out, "-")
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	app, err := Build(ctx, cfg, logging.NewNop(), BuildOptions{
		SessionDir: t.TempDir(),
		Classifier: fixedClassifier("passaporte"),
		Assistant:  silentAssistant{},
	})
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Store.AddCountry(ctx, "Canadá", domain.NewLabels("passaporte"))
	require.NoError(t, err)

	say := func(ev domain.Event) *domain.Reply {
		t.Helper()
		ev.UserID = "u1"
		reply, err := app.Events.Handle(ctx, ev)
		require.NoError(t, err)
		return reply
	}

	say(domain.Event{Kind: domain.EventStart})
	say(domain.Event{Kind: domain.EventText, Text: "Ana Souza"})
	say(domain.Event{Kind: domain.EventText, Text: "12345678900"})
	reply := say(domain.Event{Kind: domain.EventText, Text: "canada"})
	assert.Equal(t, domain.StepAwaitingDocuments, reply.Step)

	events, cancel := app.Streams.Subscribe("u1")
	defer cancel()

	reply = say(domain.Event{Kind: domain.EventAttachment, Attachment: &domain.Attachment{
		FileName: "p.pdf", MIMEType: "application/pdf", Content: []byte("%PDF"),
	}})
	assert.True(t, reply.Terminal)
	assert.Equal(t, domain.TaskReady, reply.TaskStatus)

	ev := <-events
	assert.Equal(t, domain.TaskReady, ev.Status)

	// A finished conversation leaves no session file behind.
	sessions, err := app.Sessions.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.DBDriver = "oracle"
	_, err := Build(ctx, cfg, logging.NewNop(), BuildOptions{})
	assert.ErrorContains(t, err, "unsupported db driver")

	cfg = testConfig(t)
	cfg.MatchMode = "fuzzy"
	_, err = Build(ctx, cfg, logging.NewNop(), BuildOptions{Classifier: fixedClassifier(""), Assistant: silentAssistant{}})
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.SessionKey = "bm90LWEta2V5"
	_, err = Build(ctx, cfg, logging.NewNop(), BuildOptions{Classifier: fixedClassifier(""), Assistant: silentAssistant{}})
	assert.ErrorContains(t, err, "YOUVISA_SESSION_KEY")
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.DBDriver = "sqlite"
	cfg.DBDSN = filepath.Join(t.TempDir(), "youvisa.db")

	store, closeFn, err := OpenStore(context.Background(), cfg)
	require.NoError(t, err)
	defer closeFn()

	_, err = store.AddCountry(context.Background(), "Chile", nil)
	assert.NoError(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig(t)
	logger, err := NewLogger(cfg, false)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	cfg.LogLevel = "loud"
	_, err = NewLogger(cfg, false)
	assert.Error(t, err)

	logger, err = NewLogger(cfg, true)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestOpenSessions_RedisEncrypted(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.SessionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	mgr, closeFn, err := OpenSessions(ctx, cfg, logging.NewNop(), "")
	require.NoError(t, err)
	defer closeFn()

	err = mgr.WithLock(ctx, "u1", func(ctx context.Context, tx session.Tx) error {
		s := domain.NewSession("u1", domain.StepAwaitingNationalID)
		s.Name = "Ana Souza"
		return tx.Save(ctx, s)
	})
	require.NoError(t, err)

	raw, err := mr.Get("youvisa:session:u1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "Ana Souza")

	loaded, err := mgr.Load(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Ana Souza", loaded.Name)
}

func TestOpenSessions_SealsAnswersWithoutKey(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.SessionKey = ""

	mgr, closeFn, err := OpenSessions(ctx, cfg, logging.NewNop(), "")
	require.NoError(t, err)
	defer closeFn()

	var lockKeys []string
	err = mgr.WithLock(ctx, "u1", func(ctx context.Context, tx session.Tx) error {
		lockKeys = mr.Keys()
		s := domain.NewSession("u1", domain.StepAwaitingNationalID)
		s.Name = "Ana Souza"
		return tx.Save(ctx, s)
	})
	require.NoError(t, err)
	assert.Contains(t, lockKeys, "youvisa:lock:u1")
	assert.False(t, mr.Exists("youvisa:lock:u1"), "lock is released after the transaction")

	raw, err := mr.Get("youvisa:session:u1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "Ana Souza")
	assert.Contains(t, raw, string(domain.StepAwaitingNationalID))

	loaded, err := mgr.Load(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Ana Souza", loaded.Name)
}

func TestOpenSessions_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1"

	_, _, err := OpenSessions(context.Background(), cfg, logging.NewNop(), "")
	assert.ErrorContains(t, err, "redis")
}
