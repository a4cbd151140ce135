package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract verifies that a SessionStore implementation adheres
// to the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		s := domain.NewSession(userID, domain.StepAwaitingDocuments)
		s.TaskID = 7
		s.CountryName = "Canada"
		s.RequiredDocs = domain.NewLabels("passport", "photo")

		require.NoError(t, store.Save(ctx, userID, s))

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, s.Step, loaded.Step)
		assert.Equal(t, int64(7), loaded.TaskID)
		assert.Equal(t, "Canada", loaded.CountryName)
		assert.Equal(t, s.RequiredDocs, loaded.RequiredDocs)
	})

	t.Run("Load is isolated from later mutation", func(t *testing.T) {
		s := domain.NewSession(userID, domain.StepAwaitingName)
		require.NoError(t, store.Save(ctx, userID, s))
		s.Step = domain.StepTerminal

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.StepAwaitingName, loaded.Step)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, userID, domain.NewSession(userID, domain.StepAwaitingName)))
		require.NoError(t, store.Delete(ctx, userID))

		_, err := store.Load(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		assert.NoError(t, store.Delete(ctx, userID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSession(id1, domain.StepAwaitingName)))
		require.NoError(t, store.Save(ctx, id2, domain.NewSession(id2, domain.StepAwaitingName)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}

// RunTaskStoreContract verifies that a TaskStore implementation adheres to the
// interface contract. newStore must return an empty store on every call.
func RunTaskStoreContract(t *testing.T, newStore func(t *testing.T) TaskStore) {
	ctx := context.Background()

	t.Run("Users", func(t *testing.T) {
		store := newStore(t)

		id, err := store.AddUser(ctx, "100", "Ana", "111")
		require.NoError(t, err)
		assert.NotZero(t, id)

		_, err = store.AddUser(ctx, "100", "Ana Again", "222")
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)

		u, err := store.GetUser(ctx, "100")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "Ana", u.Name, "a duplicate insert must not overwrite the user")
		assert.Equal(t, "111", u.NationalID)
		assert.False(t, u.CreatedAt.IsZero())

		_, err = store.GetUser(ctx, "404")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = store.AddUser(ctx, "101", "Bruno", "222")
		require.NoError(t, err)
		users, err := store.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "100", users[0].ExternalID)
		assert.Equal(t, "101", users[1].ExternalID)
	})

	t.Run("Concurrent duplicate users", func(t *testing.T) {
		store := newStore(t)

		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
			dupes   int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.AddUser(ctx, "race", fmt.Sprintf("user-%d", i), "000")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created++
				case assert.ErrorIs(t, err, domain.ErrAlreadyExists):
					dupes++
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1, created)
		assert.Equal(t, workers-1, dupes)
	})

	t.Run("Countries", func(t *testing.T) {
		store := newStore(t)

		_, err := store.AddCountry(ctx, "Canada", domain.NewLabels("passport", "photo"))
		require.NoError(t, err)
		_, err = store.AddCountry(ctx, "Australia", domain.NewLabels("passport"))
		require.NoError(t, err)
		_, err = store.AddCountry(ctx, "Canada", domain.NewLabels("other"))
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)

		countries, err := store.GetCountries(ctx)
		require.NoError(t, err)
		require.Len(t, countries, 2)
		assert.Equal(t, "Canada", countries[0].Name, "insertion order")
		assert.Equal(t, "Australia", countries[1].Name)
		assert.Equal(t, domain.Labels{"passport", "photo"}, countries[0].RequiredDocs)

		c, err := store.GetCountryByName(ctx, "Canada")
		require.NoError(t, err)
		assert.Equal(t, countries[0].ID, c.ID)

		_, err = store.GetCountryByName(ctx, "canada")
		assert.ErrorIs(t, err, domain.ErrNotFound, "lookup is exact")
	})

	t.Run("Tasks", func(t *testing.T) {
		store := newStore(t)

		userID, err := store.AddUser(ctx, "200", "Carla", "333")
		require.NoError(t, err)
		canada, err := store.AddCountry(ctx, "Canada", domain.NewLabels("passport", "photo"))
		require.NoError(t, err)
		japan, err := store.AddCountry(ctx, "Japan", domain.NewLabels("passport"))
		require.NoError(t, err)

		_, err = store.GetUserActiveTask(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		first, err := store.CreateTask(ctx, userID, canada)
		require.NoError(t, err)
		active, err := store.GetUserActiveTask(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, first, active.ID)
		assert.Equal(t, domain.TaskInProgress, active.Status)
		assert.Equal(t, "Canada", active.CountryName)
		assert.Equal(t, domain.Labels{"passport", "photo"}, active.RequiredDocs)

		second, err := store.CreateTask(ctx, userID, japan)
		require.NoError(t, err)
		assert.NotEqual(t, first, second, "creation never reuses an active task")

		active, err = store.GetUserActiveTask(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, second, active.ID, "most recent task wins")

		require.NoError(t, store.UpdateTaskStatus(ctx, second, domain.TaskCompleted))
		active, err = store.GetUserActiveTask(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, first, active.ID, "completed tasks are not active")

		require.NoError(t, store.UpdateTaskStatus(ctx, first, domain.TaskReady))
		active, err = store.GetUserActiveTask(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskReady, active.Status, "READY still counts as active")

		err = store.UpdateTaskStatus(ctx, 999999, domain.TaskReady)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Documents", func(t *testing.T) {
		store := newStore(t)

		userID, err := store.AddUser(ctx, "300", "Davi", "444")
		require.NoError(t, err)
		countryID, err := store.AddCountry(ctx, "Canada", domain.NewLabels("passport", "photo"))
		require.NoError(t, err)
		taskID, err := store.CreateTask(ctx, userID, countryID)
		require.NoError(t, err)

		docs, err := store.GetTaskDocuments(ctx, taskID)
		require.NoError(t, err)
		assert.Empty(t, docs)

		d1, err := store.AddDocument(ctx, taskID, "passport", "storage/300/a.jpg")
		require.NoError(t, err)
		_, err = store.AddDocument(ctx, taskID, "passport", "storage/300/b.jpg")
		require.NoError(t, err, "duplicate labels are allowed")

		docs, err = store.GetTaskDocuments(ctx, taskID)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "storage/300/a.jpg", docs[0].Locator)
		assert.Equal(t, domain.Labels{"passport"}, domain.DocTypes(docs))

		doc, err := store.GetDocument(ctx, d1)
		require.NoError(t, err)
		assert.Equal(t, taskID, doc.TaskID)
		assert.Equal(t, "passport", doc.DocType)
		assert.False(t, doc.UploadedAt.IsZero())

		_, err = store.GetDocument(ctx, 999999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Task details", func(t *testing.T) {
		store := newStore(t)

		userID, err := store.AddUser(ctx, "400", "Eva", "555")
		require.NoError(t, err)
		countryID, err := store.AddCountry(ctx, "Canada", domain.NewLabels("passport", "photo"))
		require.NoError(t, err)
		taskID, err := store.CreateTask(ctx, userID, countryID)
		require.NoError(t, err)
		_, err = store.AddDocument(ctx, taskID, "photo", "storage/400/p.jpg")
		require.NoError(t, err)

		details, err := store.GetAllTaskDetails(ctx)
		require.NoError(t, err)
		require.Len(t, details, 1)
		d := details[0]
		assert.Equal(t, taskID, d.Task.ID)
		assert.Equal(t, "Eva", d.User.Name)
		assert.Equal(t, "555", d.User.NationalID)
		assert.Equal(t, "Canada", d.Country.Name)
		require.Len(t, d.Documents, 1)
		assert.Equal(t, "photo", d.Documents[0].DocType)

		one, err := store.GetTaskDetails(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, "Eva", one.User.Name)
		assert.Equal(t, "400", one.User.ExternalID)
		assert.Equal(t, domain.Labels{"passport", "photo"}, one.Country.RequiredDocs)
		require.Len(t, one.Documents, 1)
		assert.Equal(t, "storage/400/p.jpg", one.Documents[0].Locator)

		_, err = store.GetTaskDetails(ctx, 999999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Status transitions", func(t *testing.T) {
		store := newStore(t)

		userID, err := store.AddUser(ctx, "500", "Fabi", "666")
		require.NoError(t, err)
		countryID, err := store.AddCountry(ctx, "Japan", domain.NewLabels("passport"))
		require.NoError(t, err)
		taskID, err := store.CreateTask(ctx, userID, countryID)
		require.NoError(t, err)

		err = store.TransitionTaskStatus(ctx, taskID, domain.TaskReady, domain.TaskCompleted)
		assert.ErrorIs(t, err, domain.ErrConflict, "task is still IN_PROGRESS")

		require.NoError(t, store.TransitionTaskStatus(ctx, taskID, domain.TaskInProgress, domain.TaskReady))
		require.NoError(t, store.TransitionTaskStatus(ctx, taskID, domain.TaskReady, domain.TaskCompleted))

		err = store.TransitionTaskStatus(ctx, taskID, domain.TaskReady, domain.TaskCompleted)
		assert.ErrorIs(t, err, domain.ErrConflict, "second completion loses")

		d, err := store.GetTaskDetails(ctx, taskID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskCompleted, d.Task.Status)

		err = store.TransitionTaskStatus(ctx, 999999, domain.TaskReady, domain.TaskCompleted)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
