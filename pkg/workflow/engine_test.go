package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/youvisa/pkg/adapters/file"
	"github.com/aretw0/youvisa/pkg/adapters/memory"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
	"github.com/aretw0/youvisa/pkg/session"
)

// scriptedClassifier answers from a queue; an empty queue answers UNKNOWN.
type scriptedClassifier struct {
	mu      sync.Mutex
	answers []string
	errs    []error
	allowed []domain.Labels
}

func (c *scriptedClassifier) push(answer string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers = append(c.answers, answer)
	c.errs = append(c.errs, err)
}

func (c *scriptedClassifier) Classify(ctx context.Context, doc ports.Upload, allowed domain.Labels) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowed = append(c.allowed, allowed)
	if len(c.answers) == 0 {
		return domain.ClassUnknown, nil
	}
	answer, err := c.answers[0], c.errs[0]
	c.answers, c.errs = c.answers[1:], c.errs[1:]
	return answer, err
}

type assistantFunc func(ctx context.Context, text string, cc *domain.ChatContext) (string, error)

func (f assistantFunc) Reply(ctx context.Context, text string, cc *domain.ChatContext) (string, error) {
	return f(ctx, text, cc)
}

type harness struct {
	t          *testing.T
	store      *memory.TaskStore
	sessions   *memory.Store
	uploads    string
	classifier *scriptedClassifier
	engine     *Engine
}

func newHarness(t *testing.T, assistant ports.Assistant, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		store:      memory.NewTaskStore(),
		sessions:   memory.NewStore(),
		uploads:    t.TempDir(),
		classifier: &scriptedClassifier{},
	}
	h.engine = New(h.store, session.NewManager(h.sessions), h.classifier, assistant, file.NewDocuments(h.uploads), opts...)
	return h
}

func (h *harness) addCountry(name string, required ...string) int64 {
	h.t.Helper()
	id, err := h.store.AddCountry(context.Background(), name, domain.NewLabels(required...))
	require.NoError(h.t, err)
	return id
}

func (h *harness) send(ev domain.Event) *domain.Reply {
	h.t.Helper()
	r, err := h.engine.Handle(context.Background(), ev)
	require.NoError(h.t, err)
	require.NotNil(h.t, r)
	return r
}

func (h *harness) start(user string) *domain.Reply {
	return h.send(domain.Event{UserID: user, Kind: domain.EventStart})
}

func (h *harness) text(user, text string) *domain.Reply {
	return h.send(domain.Event{UserID: user, Kind: domain.EventText, Text: text})
}

func (h *harness) upload(user string) *domain.Reply {
	return h.send(domain.Event{
		UserID: user,
		Kind:   domain.EventAttachment,
		Attachment: &domain.Attachment{
			FileName: "scan.jpg",
			MIMEType: "image/jpeg",
			Content:  []byte("fake image bytes"),
		},
	})
}

// register walks a new user up to the country question.
func (h *harness) register(user string) {
	h.t.Helper()
	h.start(user)
	h.text(user, "Ana")
	r := h.text(user, "111")
	require.Equal(h.t, domain.StepAwaitingCountry, r.Step)
}

func (h *harness) session(user string) *domain.Session {
	h.t.Helper()
	s, err := h.sessions.Load(context.Background(), user)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	require.NoError(h.t, err)
	return s
}

func (h *harness) storedFiles() []string {
	h.t.Helper()
	var files []string
	err := filepath.WalkDir(h.uploads, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return err
	})
	require.NoError(h.t, err)
	return files
}

func (h *harness) activeTask(user string) domain.ActiveTask {
	h.t.Helper()
	ctx := context.Background()
	u, err := h.store.GetUser(ctx, user)
	require.NoError(h.t, err)
	task, err := h.store.GetUserActiveTask(ctx, u.ID)
	require.NoError(h.t, err)
	return task
}

func TestEngine_RegistersNewUser(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Canada", "passport", "photo")

	r := h.start("u1")
	assert.Equal(t, []string{msgWelcome}, r.Messages)
	assert.Equal(t, domain.StepAwaitingName, r.Step)

	r = h.text("u1", "Ana")
	assert.Equal(t, []string{msgAskNationalID}, r.Messages)
	assert.Equal(t, domain.StepAwaitingNationalID, r.Step)

	r = h.text("u1", "111")
	require.Len(t, r.Messages, 2)
	assert.Equal(t, msgRegistered, r.Messages[0])
	assert.Contains(t, r.Messages[1], "- Canada")
	assert.Equal(t, domain.StepAwaitingCountry, r.Step)

	users, err := h.store.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ExternalID)
	assert.Equal(t, "Ana", users[0].Name)
	assert.Equal(t, "111", users[0].NationalID)

	s := h.session("u1")
	require.NotNil(t, s)
	assert.Empty(t, s.Name)
	assert.Empty(t, s.NationalID)
}

func TestEngine_ReRegistrationIsNotAnError(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Canada", "passport")
	_, err := h.store.AddUser(context.Background(), "u1", "Ana", "111")
	require.NoError(t, err)

	// A session stuck in registration for a user the store already knows.
	require.NoError(t, h.sessions.Save(context.Background(), "u1", &domain.Session{
		UserID: "u1",
		Step:   domain.StepAwaitingNationalID,
		Name:   "Ana",
	}))

	r := h.text("u1", "111")
	assert.Equal(t, msgRegistered, r.Messages[0])
	assert.Equal(t, domain.StepAwaitingCountry, r.Step)
}

func TestEngine_KnownUserSkipsRegistration(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Canada", "passport")
	_, err := h.store.AddUser(context.Background(), "u1", "Ana", "111")
	require.NoError(t, err)

	r := h.start("u1")
	require.Len(t, r.Messages, 3)
	assert.Equal(t, "Bem-vindo de volta, Ana!", r.Messages[0])
	assert.Contains(t, r.Messages[1], "- Canada")
	assert.Equal(t, msgStatusHint, r.Messages[2])
	assert.Equal(t, domain.StepAwaitingCountry, r.Step)
}

func TestEngine_ResolvesAccentedCountry(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Canada", "passport", "photo")
	h.register("u1")

	r := h.text("u1", "canadá")
	assert.Equal(t, domain.StepAwaitingDocuments, r.Step)
	assert.Equal(t, domain.TaskInProgress, r.TaskStatus)
	assert.NotZero(t, r.TaskID)
	assert.Contains(t, r.Messages[0], "Canada")
	assert.Contains(t, r.Messages[0], "passport, photo")

	task := h.activeTask("u1")
	assert.Equal(t, r.TaskID, task.ID)
	assert.Equal(t, domain.TaskInProgress, task.Status)
	assert.Equal(t, domain.Labels{"passport", "photo"}, task.RequiredDocs)

	s := h.session("u1")
	require.NotNil(t, s)
	assert.Equal(t, task.ID, s.TaskID)
	assert.Equal(t, domain.Labels{"passport", "photo"}, s.RequiredDocs)
}

func TestEngine_UnknownCountryRelists(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Canada", "passport")
	h.register("u1")

	r := h.text("u1", "Japão")
	require.Len(t, r.Messages, 1)
	assert.Contains(t, r.Messages[0], msgUnknownCountry)
	assert.Contains(t, r.Messages[0], "- Canada")
	assert.Equal(t, domain.StepAwaitingCountry, r.Step)
}

func TestEngine_NoCountriesEndsConversation(t *testing.T) {
	h := newHarness(t, nil)
	h.start("u1")
	h.text("u1", "Ana")

	r := h.text("u1", "111")
	assert.Equal(t, []string{msgRegistered, msgNoCountries}, r.Messages)
	assert.True(t, r.Terminal)
	assert.Nil(t, h.session("u1"))

	_, err := h.store.GetUser(context.Background(), "u1")
	assert.NoError(t, err)
}

func TestEngine_DocumentsUntilReady(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Canada", "passport", "photo")
	h.register("u1")
	h.text("u1", "Canada")

	h.classifier.push("passport", nil)
	r := h.upload("u1")
	assert.Equal(t, []string{msgAnalyzing, "Recebido: passport!", "Ainda falta: photo"}, r.Messages)
	assert.Equal(t, domain.StepAwaitingDocuments, r.Step)
	assert.Equal(t, domain.TaskInProgress, r.TaskStatus)
	assert.Equal(t, domain.TaskInProgress, h.activeTask("u1").Status)

	docs, err := h.store.GetTaskDocuments(context.Background(), r.TaskID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "passport", docs[0].DocType)
	assert.Len(t, h.storedFiles(), 1)

	h.classifier.push("photo", nil)
	r = h.upload("u1")
	assert.Equal(t, []string{msgAnalyzing, "Recebido: photo!", msgAllReceived}, r.Messages)
	assert.True(t, r.Terminal)
	assert.Equal(t, domain.TaskReady, r.TaskStatus)
	assert.Equal(t, domain.TaskReady, h.activeTask("u1").Status)
	assert.Nil(t, h.session("u1"))

	require.Len(t, h.classifier.allowed, 2)
	assert.Equal(t, domain.Labels{"passport", "photo"}, h.classifier.allowed[0])
}

func TestEngine_DuplicateLabelKeepsMissing(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Canada", "passport", "photo")
	h.register("u1")
	h.text("u1", "Canada")

	h.classifier.push("passport", nil)
	h.upload("u1")
	h.classifier.push("passport", nil)
	r := h.upload("u1")

	assert.Equal(t, "Ainda falta: photo", r.Messages[len(r.Messages)-1])
	assert.False(t, r.Terminal)
}

func TestEngine_RejectedDocuments(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		err    error
	}{
		{"error sentinel", domain.ClassError, nil},
		{"provider failure", "", errors.New("upstream timeout")},
		{"unknown sentinel", domain.ClassUnknown, nil},
		{"out of vocabulary", "driver license", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			h.addCountry("Canada", "passport", "photo")
			h.register("u1")
			h.text("u1", "Canada")

			h.classifier.push(tt.answer, tt.err)
			r := h.upload("u1")

			assert.Equal(t, []string{msgAnalyzing, documentRejected(domain.Labels{"passport", "photo"})}, r.Messages)
			assert.Equal(t, domain.StepAwaitingDocuments, r.Step)
			assert.False(t, r.Terminal)

			docs, err := h.store.GetTaskDocuments(context.Background(), r.TaskID)
			require.NoError(t, err)
			assert.Empty(t, docs)
			assert.Equal(t, domain.TaskInProgress, h.activeTask("u1").Status)
			assert.Empty(t, h.storedFiles())
			assert.Equal(t, 1, h.session("u1").FailedClassifications)
		})
	}
}

func TestEngine_RetryCap(t *testing.T) {
	h := newHarness(t, nil, WithMaxClassificationAttempts(2))
	h.addCountry("Canada", "passport")
	h.register("u1")
	h.text("u1", "Canada")

	r := h.upload("u1")
	assert.False(t, r.Terminal)

	r = h.upload("u1")
	assert.True(t, r.Terminal)
	assert.Equal(t, msgTooManyAttempts, r.Messages[len(r.Messages)-1])
	assert.Nil(t, h.session("u1"))
	assert.Equal(t, domain.TaskInProgress, h.activeTask("u1").Status)
}

func TestEngine_AcceptedUploadResetsFailures(t *testing.T) {
	h := newHarness(t, nil, WithMaxClassificationAttempts(2))
	h.addCountry("Canada", "passport", "photo")
	h.register("u1")
	h.text("u1", "Canada")

	h.upload("u1")
	h.classifier.push("passport", nil)
	h.upload("u1")
	assert.Equal(t, 0, h.session("u1").FailedClassifications)

	r := h.upload("u1")
	assert.False(t, r.Terminal)
}

func TestEngine_RecoversLostSession(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Canada", "passport", "photo")
	h.register("u1")
	opened := h.text("u1", "Canada")
	require.NoError(t, h.sessions.Delete(context.Background(), "u1"))

	h.classifier.push("passport", nil)
	r := h.upload("u1")

	assert.Equal(t, []string{msgAnalyzing, "Recebido: passport!", "Ainda falta: photo"}, r.Messages)
	assert.Equal(t, domain.StepAwaitingDocuments, r.Step)
	assert.Equal(t, opened.TaskID, r.TaskID)

	s := h.session("u1")
	require.NotNil(t, s)
	assert.Equal(t, opened.TaskID, s.TaskID)
	assert.Equal(t, "Canada", s.CountryName)
	assert.Equal(t, domain.Labels{"passport", "photo"}, s.RequiredDocs)

	h.classifier.push("photo", nil)
	r = h.upload("u1")
	assert.True(t, r.Terminal)
	assert.Equal(t, domain.TaskReady, h.activeTask("u1").Status)
}

func TestEngine_RecoveryWithoutTask(t *testing.T) {
	h := newHarness(t, nil)

	r := h.upload("stranger")
	assert.Equal(t, []string{msgNoActiveTask}, r.Messages)
	assert.True(t, r.Terminal)
	assert.Empty(t, h.storedFiles())

	_, err := h.store.AddUser(context.Background(), "u2", "Bia", "222")
	require.NoError(t, err)
	r = h.upload("u2")
	assert.Equal(t, []string{msgNoActiveTask}, r.Messages)
}

func TestEngine_Cancel(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Canada", "passport")
	h.register("u1")
	h.text("u1", "Canada")

	r := h.send(domain.Event{UserID: "u1", Kind: domain.EventCancel})
	assert.Equal(t, []string{msgCancelled}, r.Messages)
	assert.True(t, r.Terminal)
	assert.Nil(t, h.session("u1"))

	// Persisted rows survive a cancel.
	assert.Equal(t, domain.TaskInProgress, h.activeTask("u1").Status)
}

func TestEngine_StatusCommand(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Canada", "passport", "photo")
	h.register("u1")
	h.text("u1", "Canada")
	h.classifier.push("photo", nil)
	h.upload("u1")

	h.start("u1")
	r := h.text("u1", "Meu Status")
	require.Len(t, r.Messages, 1)
	assert.Contains(t, r.Messages[0], "Canada")
	assert.Contains(t, r.Messages[0], string(domain.TaskInProgress))
	assert.Contains(t, r.Messages[0], "Ainda falta: passport")
	assert.True(t, r.Terminal)
}

func TestEngine_ActiveTaskPolicies(t *testing.T) {
	setup := func(t *testing.T, p ActiveTaskPolicy) (*harness, int64) {
		h := newHarness(t, nil, WithActiveTaskPolicy(p))
		h.addCountry("Canada", "passport")
		h.addCountry("Portugal", "passport", "photo")
		h.register("u1")
		first := h.text("u1", "Canada")
		h.start("u1")
		return h, first.TaskID
	}

	t.Run("allow creates another task", func(t *testing.T) {
		h, first := setup(t, PolicyAllow)
		r := h.text("u1", "Canada")
		assert.NotEqual(t, first, r.TaskID)
	})

	t.Run("reuse resumes the same country", func(t *testing.T) {
		h, first := setup(t, PolicyReuse)
		r := h.text("u1", "Canada")
		assert.Equal(t, first, r.TaskID)
		assert.Contains(t, r.Messages[0], "Ainda falta: passport")
		assert.Equal(t, domain.StepAwaitingDocuments, r.Step)
	})

	t.Run("reuse opens a task for another country", func(t *testing.T) {
		h, first := setup(t, PolicyReuse)
		r := h.text("u1", "Portugal")
		assert.NotEqual(t, first, r.TaskID)
	})

	t.Run("forbid keeps the active task", func(t *testing.T) {
		h, first := setup(t, PolicyForbid)
		r := h.text("u1", "Portugal")
		assert.Equal(t, first, r.TaskID)
		assert.Equal(t, taskBlocked("Canada"), r.Messages[0])
		assert.Equal(t, "Canada", h.session("u1").CountryName)

		details, err := h.store.GetAllTaskDetails(context.Background())
		require.NoError(t, err)
		assert.Len(t, details, 1)
	})
}

func TestEngine_CountryWithoutRequirements(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Mercosul")
	h.register("u1")

	r := h.text("u1", "Mercosul")
	assert.True(t, r.Terminal)
	assert.Equal(t, domain.TaskReady, r.TaskStatus)
	assert.Equal(t, []string{msgAllReceived}, r.Messages)
}

func TestEngine_AttachmentDuringRegistration(t *testing.T) {
	h := newHarness(t, nil)
	h.start("u1")

	r := h.upload("u1")
	assert.Equal(t, []string{msgTextOnly, msgAskName}, r.Messages)
	assert.Equal(t, domain.StepAwaitingName, r.Step)
	assert.Empty(t, h.storedFiles())
}

func TestEngine_Chat(t *testing.T) {
	var got *domain.ChatContext
	assistant := assistantFunc(func(ctx context.Context, text string, cc *domain.ChatContext) (string, error) {
		got = cc
		return " Olá! ", nil
	})
	h := newHarness(t, assistant)
	h.addCountry("Canada", "passport", "photo")

	r := h.text("u1", "oi")
	assert.Equal(t, []string{"Olá!"}, r.Messages)
	assert.Nil(t, got)
	assert.Equal(t, domain.StepNone, r.Step)
	assert.Nil(t, h.session("u1"))

	h.register("u1")
	h.text("u1", "Canada")
	h.classifier.push("photo", nil)
	h.upload("u1")

	r = h.text("u1", "o que falta?")
	assert.Equal(t, []string{"Olá!"}, r.Messages)
	assert.Equal(t, domain.StepAwaitingDocuments, r.Step)
	require.NotNil(t, got)
	assert.Equal(t, "Canada", got.CountryName)
	assert.Equal(t, domain.Labels{"photo"}, got.UploadedDocs)
	assert.Equal(t, domain.Labels{"passport"}, got.Missing())

	// Without a session the context comes from the store.
	require.NoError(t, h.sessions.Delete(context.Background(), "u1"))
	got = nil
	h.text("u1", "e agora?")
	require.NotNil(t, got)
	assert.Equal(t, "Canada", got.CountryName)
}

func TestEngine_AssistantFallback(t *testing.T) {
	tests := []struct {
		name      string
		assistant ports.Assistant
	}{
		{"no assistant", nil},
		{"failure", assistantFunc(func(ctx context.Context, text string, cc *domain.ChatContext) (string, error) {
			return "", errors.New("rate limited")
		})},
		{"blank answer", assistantFunc(func(ctx context.Context, text string, cc *domain.ChatContext) (string, error) {
			return "  ", nil
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.assistant)
			r := h.text("u1", "oi")
			assert.Equal(t, []string{msgAssistantDown}, r.Messages)
			assert.False(t, r.Terminal)
		})
	}
}

func TestEngine_InvalidEvents(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.engine.Handle(context.Background(), domain.Event{Kind: domain.EventStart})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = h.engine.Handle(context.Background(), domain.Event{UserID: "u1", Kind: "sticker"})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestEngine_Hooks(t *testing.T) {
	var (
		mu       sync.Mutex
		steps    []domain.Step
		statuses []domain.TaskStatus
		outcomes []domain.Outcome
	)
	hooks := domain.LifecycleHooks{
		OnStep: func(ctx context.Context, ev *domain.StepEvent) {
			mu.Lock()
			defer mu.Unlock()
			steps = append(steps, ev.To)
		},
		OnTaskStatus: func(ctx context.Context, ev *domain.TaskEvent) {
			mu.Lock()
			defer mu.Unlock()
			statuses = append(statuses, ev.Status)
		},
		OnClassification: func(ctx context.Context, ev *domain.ClassificationEvent) {
			mu.Lock()
			defer mu.Unlock()
			outcomes = append(outcomes, ev.Outcome)
		},
	}
	h := newHarness(t, nil, WithHooks(hooks))
	h.addCountry("Canada", "passport")
	h.register("u1")
	h.text("u1", "Canada")
	h.upload("u1")
	h.classifier.push("passport", nil)
	h.upload("u1")

	assert.Equal(t, []domain.Step{
		domain.StepAwaitingName,
		domain.StepAwaitingNationalID,
		domain.StepAwaitingCountry,
		domain.StepAwaitingDocuments,
		domain.StepTerminal,
	}, steps)
	assert.Equal(t, []domain.TaskStatus{domain.TaskInProgress, domain.TaskReady}, statuses)
	assert.Equal(t, []domain.Outcome{domain.OutcomeUnknown, domain.OutcomeRecognized}, outcomes)
}

func TestEngine_UsersRunIndependently(t *testing.T) {
	h := newHarness(t, nil)
	h.addCountry("Canada", "passport")

	var wg sync.WaitGroup
	for _, user := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := h.engine.Handle(context.Background(), domain.Event{UserID: user, Kind: domain.EventStart})
			assert.NoError(t, err)
		}(user)
	}
	wg.Wait()

	ids, err := h.sessions.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}

type blockingClassifier struct{}

func (blockingClassifier) Classify(ctx context.Context, doc ports.Upload, allowed domain.Labels) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestEngine_ClassifyTimeout(t *testing.T) {
	h := newHarness(t, nil)
	h.engine = New(h.store, session.NewManager(h.sessions), blockingClassifier{}, nil,
		file.NewDocuments(h.uploads), WithClassifyTimeout(50*time.Millisecond))
	h.addCountry("Canada", "passport", "photo")
	h.register("u1")
	h.text("u1", "Canada")

	begin := time.Now()
	r := h.upload("u1")
	assert.Less(t, time.Since(begin), 5*time.Second)

	assert.Equal(t, []string{msgAnalyzing, documentRejected(domain.Labels{"passport", "photo"})}, r.Messages)
	assert.Equal(t, domain.StepAwaitingDocuments, r.Step)
	assert.False(t, r.Terminal)

	docs, err := h.store.GetTaskDocuments(context.Background(), r.TaskID)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, h.storedFiles())
	assert.Equal(t, domain.TaskInProgress, h.activeTask("u1").Status)
}

func TestEngine_AssistantTimeout(t *testing.T) {
	var hadDeadline bool
	blocking := assistantFunc(func(ctx context.Context, text string, cc *domain.ChatContext) (string, error) {
		_, hadDeadline = ctx.Deadline()
		<-ctx.Done()
		return "", ctx.Err()
	})
	h := newHarness(t, blocking, WithAssistantTimeout(50*time.Millisecond))

	begin := time.Now()
	r := h.text("u1", "oi")
	assert.Less(t, time.Since(begin), 5*time.Second)

	assert.True(t, hadDeadline)
	assert.Equal(t, []string{msgAssistantDown}, r.Messages)
	assert.False(t, r.Terminal)
	assert.Nil(t, h.session("u1"))

	users, err := h.store.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestEngine_NoDocumentStorage(t *testing.T) {
	h := newHarness(t, nil)
	h.engine = New(h.store, session.NewManager(h.sessions), h.classifier, nil, nil)
	h.addCountry("Canada", "passport")
	h.register("u1")
	h.text("u1", "Canada")

	_, err := h.engine.Handle(context.Background(), domain.Event{
		UserID:     "u1",
		Kind:       domain.EventAttachment,
		Attachment: &domain.Attachment{FileName: "scan.jpg", Content: []byte("bytes")},
	})
	require.ErrorIs(t, err, ErrNoDocumentStorage)

	// The failed event leaves the conversation where it was.
	assert.Equal(t, domain.StepAwaitingDocuments, h.session("u1").Step)
	docs, err := h.store.GetTaskDocuments(context.Background(), h.activeTask("u1").ID)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestEngine_WelcomeUsesDisplayName(t *testing.T) {
	h := newHarness(t, nil)

	r := h.send(domain.Event{UserID: "u1", Kind: domain.EventStart, DisplayName: " Ana "})
	require.Len(t, r.Messages, 1)
	assert.Equal(t, "Olá, Ana! "+msgWelcome, r.Messages[0])

	r = h.send(domain.Event{UserID: "u2", Kind: domain.EventStart})
	assert.Equal(t, []string{msgWelcome}, r.Messages)
}
