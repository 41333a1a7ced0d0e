package generation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/studycards/internal/apperr"
	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/generation"
	"codeberg.org/snonux/studycards/internal/image"
	"codeberg.org/snonux/studycards/internal/notify"
	"codeberg.org/snonux/studycards/internal/remote"
	"codeberg.org/snonux/studycards/internal/testutil"
)

type controllerFixture struct {
	client     *testutil.FakeClient
	notes      *testutil.NotificationRecorder
	controller *generation.Controller

	mu      sync.Mutex
	handoff []*deck.Result
}

func newControllerFixture() *controllerFixture {
	f := &controllerFixture{
		client: &testutil.FakeClient{},
		notes:  testutil.NewNotificationRecorder(),
	}
	f.controller = generation.NewController(f.client, &generation.Options{
		Notifier: f.notes.Queue(),
		OnResult: func(r *deck.Result) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.handoff = append(f.handoff, r)
		},
	})
	return f
}

func (f *controllerFixture) handoffs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handoff)
}

func TestRequestValidate(t *testing.T) {
	png := image.NewUpload("a.png", "image/png", []byte("\x89PNG"))

	tests := []struct {
		name    string
		req     generation.Request
		wantErr bool
	}{
		{"text", generation.TextRequest("Cells divide."), false},
		{"empty text", generation.TextRequest(""), true},
		{"whitespace text", generation.TextRequest(" \n\t "), true},
		{"image", generation.ImageRequest(png), false},
		{"missing image", generation.ImageRequest(nil), true},
		{"empty image", generation.ImageRequest(&image.Upload{Filename: "a.png"}), true},
		{"unknown kind", generation.Request{Kind: generation.Kind(7)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
			if err != nil {
				assert.True(t, apperr.IsValidation(err))
			}
		})
	}
}

func TestEmptyTextNeverCallsNetwork(t *testing.T) {
	for _, text := range []string{"", "   ", "\t\n"} {
		f := newControllerFixture()

		_, err := f.controller.Submit(context.Background(), generation.TextRequest(text))
		assert.True(t, apperr.IsValidation(err))

		assert.Zero(t, f.client.CallCount())
		assert.Equal(t, []string{generation.MsgEnterText}, f.notes.Messages())
		assert.Equal(t, 1, f.notes.Count(notify.SeverityError))
		assert.Equal(t, generation.StateIdle, f.controller.State())
		assert.Nil(t, f.controller.Outcome())
	}
}

func TestMissingImageNotifies(t *testing.T) {
	f := newControllerFixture()

	_, err := f.controller.Submit(context.Background(), generation.ImageRequest(nil))
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, []string{generation.MsgUploadImage}, f.notes.Messages())
	assert.Zero(t, f.client.CallCount())
}

func TestMitochondriaEndToEnd(t *testing.T) {
	f := newControllerFixture()
	f.client.TextResult = &deck.Result{
		Cards: deck.NewSet([]deck.Card{{
			Question: "What is the powerhouse of the cell?",
			Answer:   "The mitochondria",
		}}),
		Counters: deck.Counters{Count: 1, TextWordCount: 8, FlashcardWordCount: 2},
	}

	var states []generation.State
	f.controller.OnChange(func(s generation.State) { states = append(states, s) })

	result, err := f.controller.Submit(context.Background(),
		generation.TextRequest("The mitochondria is the powerhouse of the cell."))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Len())
	assert.Equal(t, 8, result.TextWordCount)
	assert.Equal(t, 1, f.handoffs())
	assert.Same(t, result, f.handoff[0])

	assert.Equal(t, []string{generation.MsgTextSuccess}, f.notes.Messages())
	assert.Equal(t, []generation.State{
		generation.StateSubmitting, generation.StateSucceeded, generation.StateIdle,
	}, states)

	outcome := f.controller.Outcome()
	require.NotNil(t, outcome)
	assert.Equal(t, generation.StateSucceeded, outcome.State)
	assert.Equal(t, generation.KindText, outcome.Kind)
}

func TestImageFailureEndToEnd(t *testing.T) {
	f := newControllerFixture()
	f.client.ImageErr = &remote.Failure{Op: "generate-from-image", Status: 500, Message: "OCR failed"}

	var states []generation.State
	f.controller.OnChange(func(s generation.State) { states = append(states, s) })

	upload := image.NewUpload("notes.png", "image/png", []byte("\x89PNG\r\n"))
	result, err := f.controller.Submit(context.Background(), generation.ImageRequest(upload))

	assert.Nil(t, result)
	assert.True(t, remote.IsFailure(err))
	assert.Equal(t, []string{generation.MsgImageFailed}, f.notes.Messages())
	assert.Equal(t, generation.StateIdle, f.controller.State())
	assert.Zero(t, f.handoffs())
	assert.Equal(t, []generation.State{
		generation.StateSubmitting, generation.StateFailed, generation.StateIdle,
	}, states)
	assert.Equal(t, generation.StateFailed, f.controller.Outcome().State)
}

func TestNilResultIsFailure(t *testing.T) {
	f := newControllerFixture()

	_, err := f.controller.Submit(context.Background(), generation.TextRequest("some study text"))
	assert.True(t, remote.IsFailure(err))
	assert.Equal(t, []string{generation.MsgTextFailed}, f.notes.Messages())
	assert.Zero(t, f.handoffs())
}

func TestSubmitWhileSubmittingIsRejected(t *testing.T) {
	f := newControllerFixture()
	f.client.TextResult = testutil.NewResult("Q", "A")
	gate := f.client.HoldGeneration()

	first := make(chan error, 1)
	go func() {
		_, err := f.controller.Submit(context.Background(), generation.TextRequest("first text"))
		first <- err
	}()
	<-gate.Entered()
	assert.True(t, f.controller.Busy())

	_, err := f.controller.Submit(context.Background(), generation.TextRequest("second text"))
	assert.ErrorIs(t, err, generation.ErrBusy)

	// Even an invalid request is rejected as busy, without a notification
	_, err = f.controller.Submit(context.Background(), generation.TextRequest(""))
	assert.ErrorIs(t, err, generation.ErrBusy)
	assert.Empty(t, f.notes.Messages())

	gate.Release()
	require.NoError(t, <-first)

	assert.Equal(t, 1, f.client.CallCount())
	assert.Equal(t, 1, f.handoffs())
	assert.Equal(t, []string{generation.MsgTextSuccess}, f.notes.Messages())

	// Back to Idle, the next submission is accepted
	_, err = f.controller.Submit(context.Background(), generation.TextRequest("third text"))
	require.NoError(t, err)
	assert.Equal(t, 2, f.handoffs())
}

func TestSubmitFromOnResultIsRejected(t *testing.T) {
	client := &testutil.FakeClient{TextResult: testutil.NewResult("Q", "A")}
	notes := testutil.NewNotificationRecorder()

	var controller *generation.Controller
	var nested error
	controller = generation.NewController(client, &generation.Options{
		Notifier: notes.Queue(),
		OnResult: func(*deck.Result) {
			_, nested = controller.Submit(context.Background(), generation.TextRequest("again"))
		},
	})

	_, err := controller.Submit(context.Background(), generation.TextRequest("once"))
	require.NoError(t, err)
	assert.ErrorIs(t, nested, generation.ErrBusy)
	assert.Equal(t, 1, client.CallCount())
}

func TestTimeoutFailsSubmission(t *testing.T) {
	client := &testutil.FakeClient{TextResult: testutil.NewResult("Q", "A")}
	gate := client.HoldGeneration()
	defer gate.Release()
	notes := testutil.NewNotificationRecorder()

	controller := generation.NewController(client, &generation.Options{
		Notifier: notes.Queue(),
		Timeout:  20 * time.Millisecond,
	})

	_, err := controller.Submit(context.Background(), generation.TextRequest("slow collaborator"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{generation.MsgTextFailed}, notes.Messages())
	assert.Equal(t, generation.StateIdle, controller.State())
}

func TestStateAndKindStrings(t *testing.T) {
	assert.Equal(t, "Submitting", generation.StateSubmitting.String())
	assert.Equal(t, "Unknown", generation.State(99).String())
	assert.Equal(t, "image", generation.KindImage.String())
	assert.Equal(t, "unknown", generation.Kind(5).String())
}
