package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigkaa/goartstore/docvault/internal/domain/model"
	"github.com/bigkaa/goartstore/docvault/internal/share"
)

// recordingUploader запоминает выгруженное содержимое.
type recordingUploader struct {
	docs    []model.Document
	content []string
	err     error
}

func (u *recordingUploader) Upload(_ context.Context, doc model.Document, body io.Reader, _ int64) (*share.Link, error) {
	if u.err != nil {
		return nil, u.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	u.docs = append(u.docs, doc)
	u.content = append(u.content, string(data))
	return &share.Link{URL: "https://example.test/" + doc.ID, Key: doc.ID}, nil
}

func TestShareService(t *testing.T) {
	env := newTestEnv(t)
	id := env.mustImport(t, "scan.pdf", "")
	up := &recordingUploader{}
	ss := NewShareService(env.manager, env.store, up, testLogger())

	link, err := ss.Share(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/"+id, link.URL)
	require.Len(t, up.content, 1)
	assert.Equal(t, "data:scan.pdf", up.content[0])
	assert.Empty(t, env.sched.all())
}

func TestShareService_ProtectedUsesTemporaryUnlock(t *testing.T) {
	env := newTestEnv(t)
	id := env.mustImport(t, "scan.pdf", "")
	_, err := env.manager.LockDocument(id)
	require.NoError(t, err)

	up := &recordingUploader{}
	ss := NewShareService(env.manager, env.store, up, testLogger())

	_, err = ss.Share(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, up.docs, 1)
	assert.False(t, up.docs[0].IsProtected)
	assert.Len(t, env.sched.pending(), 1)
}

func TestShareService_Errors(t *testing.T) {
	env := newTestEnv(t)
	id := env.mustImport(t, "scan.pdf", "")

	disabled := NewShareService(env.manager, env.store, nil, testLogger())
	assert.False(t, disabled.Enabled())
	_, err := disabled.Share(context.Background(), id)
	assert.ErrorIs(t, err, share.ErrDisabled)

	failing := NewShareService(env.manager, env.store, &recordingUploader{err: errors.New("s3 недоступен")}, testLogger())
	_, err = failing.Share(context.Background(), id)
	assert.Error(t, err)

	_, err = env.manager.MoveToTrash(id)
	require.NoError(t, err)
	ok := NewShareService(env.manager, env.store, &recordingUploader{}, testLogger())
	_, err = ok.Share(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}
