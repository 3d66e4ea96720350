package server

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/quote-repost/internal/db"
	"github.com/jonathan/quote-repost/internal/types"
)

func TestReview_Approve(t *testing.T) {
	rec := acceptedRecord()
	store := newFakeStore(rec)
	publisher := &fakePublisher{}
	ts := newTestServer(t, Dependencies{Store: store, Publisher: publisher})

	w := ts.do(t, http.MethodPost, "/reviews", types.ReviewAction{
		Action: types.ReviewApprove, SourceID: rec.SourceID, DraftIndex: 1,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[ReviewResponse](t, w)
	assert.Equal(t, db.ReviewStatusApproved, resp.Status)
	assert.Equal(t, "案B", resp.Text)
	assert.Equal(t, "1800000000000000009", resp.PublishedID)
	require.NotNil(t, resp.DraftIndex)
	assert.Equal(t, 1, *resp.DraftIndex)

	assert.Equal(t, "案B", publisher.text)
	assert.Equal(t, rec.SourceID, publisher.quoted)

	require.Len(t, store.reviews, 1)
	saved := store.reviews[0]
	assert.Equal(t, rec.RunID, saved.RunID)
	assert.Equal(t, types.ReviewApprove, saved.Action)
	assert.Equal(t, "oda", saved.Reviewer)
	assert.Equal(t, "案B", saved.DraftText)
}

func TestReview_ApproveWithoutPublisher(t *testing.T) {
	rec := acceptedRecord()
	store := newFakeStore(rec)
	ts := newTestServer(t, Dependencies{Store: store})

	w := ts.do(t, http.MethodPost, "/reviews", types.ReviewAction{Action: types.ReviewApprove, SourceID: rec.SourceID})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[ReviewResponse](t, w)
	assert.Equal(t, "案A", resp.Text)
	assert.Empty(t, resp.PublishedID)
	assert.Len(t, store.reviews, 1)
}

func TestReview_ApprovePublishFails(t *testing.T) {
	rec := acceptedRecord()
	store := newFakeStore(rec)
	ts := newTestServer(t, Dependencies{Store: store, Publisher: &fakePublisher{err: errors.New("403 forbidden")}})

	w := ts.do(t, http.MethodPost, "/reviews", types.ReviewAction{Action: types.ReviewApprove, SourceID: rec.SourceID})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decodeBody[map[string]string](t, w)["error"], "403 forbidden")
	assert.Empty(t, store.reviews, "nothing recorded when publishing fails")
}

func TestReview_InvalidDraftIndex(t *testing.T) {
	rec := acceptedRecord()
	store := newFakeStore(rec)
	ts := newTestServer(t, Dependencies{Store: store})

	w := ts.do(t, http.MethodPost, "/reviews", types.ReviewAction{Action: types.ReviewApprove, SourceID: rec.SourceID, DraftIndex: 2})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid draft index", decodeBody[map[string]string](t, w)["error"])
	assert.Empty(t, store.reviews)
}

func TestReview_InvalidAction(t *testing.T) {
	ts := newTestServer(t, Dependencies{Store: newFakeStore(acceptedRecord())})

	w := ts.do(t, http.MethodPost, "/reviews", map[string]any{"action": "post", "post_id": "1790000000000000001"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid action", decodeBody[map[string]string](t, w)["error"])
}

func TestReview_Revise(t *testing.T) {
	rec := acceptedRecord()
	store := newFakeStore(rec)
	requeuer := &fakeRequeuer{}
	ts := newTestServer(t, Dependencies{Store: store, Requeuer: requeuer})

	w := ts.do(t, http.MethodPost, "/reviews", types.ReviewAction{
		Action: types.ReviewRevise, SourceID: rec.SourceID, Instruction: "もっと短く",
	})

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, db.ReviewStatusRevising, decodeBody[ReviewResponse](t, w).Status)

	require.Len(t, requeuer.enqueued, 1)
	inv := requeuer.enqueued[0]
	assert.Equal(t, rec.SourceID, inv.SourceID)
	assert.Equal(t, rec.SourceText, inv.Text)
	assert.Equal(t, types.ModeLong, inv.Mode)
	assert.Equal(t, "副業", inv.AuthorProfile.PrimaryTheme)
	assert.Equal(t, "もっと短く", inv.RevisionInstruction)

	require.Len(t, store.reviews, 1)
	assert.Equal(t, "もっと短く", store.reviews[0].Instruction)
}

func TestReview_ReviseRequiresInstruction(t *testing.T) {
	requeuer := &fakeRequeuer{}
	ts := newTestServer(t, Dependencies{Store: newFakeStore(acceptedRecord()), Requeuer: requeuer})

	w := ts.do(t, http.MethodPost, "/reviews", types.ReviewAction{Action: types.ReviewRevise, SourceID: "1790000000000000001"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, requeuer.enqueued)
}

func TestReview_ReviseWithoutQueue(t *testing.T) {
	store := newFakeStore(acceptedRecord())
	ts := newTestServer(t, Dependencies{Store: store})

	w := ts.do(t, http.MethodPost, "/reviews", types.ReviewAction{
		Action: types.ReviewRevise, SourceID: "1790000000000000001", Instruction: "短く",
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, store.reviews)
}

func TestReview_Skip(t *testing.T) {
	rec := acceptedRecord()
	store := newFakeStore(rec)
	ts := newTestServer(t, Dependencies{Store: store})

	w := ts.do(t, http.MethodPost, "/reviews", types.ReviewAction{Action: types.ReviewSkip, SourceID: rec.SourceID})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, db.ReviewStatusSkipped, decodeBody[ReviewResponse](t, w).Status)
	require.Len(t, store.reviews, 1)
	assert.Nil(t, store.reviews[0].DraftIndex)
}

func TestReview_UnknownPost(t *testing.T) {
	ts := newTestServer(t, Dependencies{})

	w := ts.do(t, http.MethodPost, "/reviews", types.ReviewAction{Action: types.ReviewSkip, SourceID: "404"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReview_SaveFails(t *testing.T) {
	store := newFakeStore(acceptedRecord())
	store.saveErr = errors.New("connection reset")
	ts := newTestServer(t, Dependencies{Store: store})

	w := ts.do(t, http.MethodPost, "/reviews", types.ReviewAction{Action: types.ReviewSkip, SourceID: "1790000000000000001"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
