package task

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/skillsenselab/parakeet/audio"
	"github.com/skillsenselab/parakeet/diarization"
	"github.com/skillsenselab/parakeet/logger"
	"github.com/skillsenselab/parakeet/transcription"
)

// --- fakes ---

type fakeTranscriber struct {
	delay   time.Duration
	err     error
	text    string
	current atomic.Int32
	peak    atomic.Int32
	calls   atomic.Int32
}

func (f *fakeTranscriber) Name() string                        { return "fake" }
func (f *fakeTranscriber) IsAvailable(_ context.Context) bool  { return f.err == nil }
func (f *fakeTranscriber) Transcribe(_ context.Context, req transcription.Request) (*transcription.Response, error) {
	f.calls.Add(1)
	n := f.current.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.current.Add(-1)

	if f.err != nil {
		return nil, f.err
	}
	resp := &transcription.Response{Text: f.text}
	if req.Timestamps {
		resp.Timestamps = &transcription.Timestamps{
			Words: []transcription.Stamp{{Start: 0, End: 0.5, Text: f.text}},
		}
	}
	return resp, nil
}

type fakeDiarizer struct {
	err      error
	segments []diarization.Segment
}

func (f *fakeDiarizer) Name() string                       { return "fake-diarizer" }
func (f *fakeDiarizer) IsAvailable(_ context.Context) bool { return f.err == nil }
func (f *fakeDiarizer) Diarize(_ context.Context, _ diarization.Request) (*diarization.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &diarization.Response{Segments: f.segments, NumSpeakers: 2}, nil
}

// --- helpers ---

// stereoWAV returns the bytes of a one-second 44.1 kHz stereo WAV file.
func stereoWAV(t *testing.T) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gen.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	data := make([]int, 44100*2)
	for i := 0; i < 44100; i++ {
		s := int(12000 * math.Sin(2*math.Pi*440*float64(i)/44100))
		data[i*2] = s
		data[i*2+1] = s
	}
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

type testService struct {
	*Service
	uploadDir   string
	transcriber *fakeTranscriber
	diarizer    *fakeDiarizer
}

func newTestService(t *testing.T, maxConcurrent int, tr *fakeTranscriber, dz *fakeDiarizer) *testService {
	t.Helper()

	db := openTestDB(t)
	uploadDir := filepath.Join(t.TempDir(), "uploads")

	var audioCfg audio.Config
	audioCfg.ApplyDefaults()
	normalizer := audio.NewNormalizer(audioCfg, nil)

	var diarizer diarization.Provider
	if dz != nil {
		diarizer = dz
	}

	svc, err := NewService(Config{
		MaxConcurrent: maxConcurrent,
		UploadDir:     uploadDir,
	}, db, normalizer, tr, diarizer, logger.NewDefault("test"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &testService{Service: svc, uploadDir: uploadDir, transcriber: tr, diarizer: dz}
}

// drain waits for all background work to finish.
func (s *testService) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) > 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("transient files left behind: %v", names)
	}
}

// --- scenarios ---

func TestServiceTranscribesStereoWAV(t *testing.T) {
	tr := &fakeTranscriber{text: "hello world"}
	s := newTestService(t, 2, tr, nil)

	created, err := s.Submit(context.Background(), bytes.NewReader(stereoWAV(t)), "meeting.wav", Params{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if created.Status != StatusQueued {
		t.Errorf("submitted status = %s, want queued", created.Status)
	}
	s.drain(t)

	got, err := s.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s (error: %s), want completed", got.Status, got.Error)
	}
	if got.Result == nil || got.Result.Text != "hello world" {
		t.Errorf("result = %+v, want text only", got.Result)
	}
	if got.Result.HasTimestamps() || got.Result.HasSpeakers() {
		t.Error("unrequested optional parts present in result")
	}
	if got.StartTime == nil || got.EndTime == nil || got.AudioDuration < 0.9 {
		t.Errorf("timing not recorded: %+v", got)
	}
	assertDirEmpty(t, s.uploadDir)
}

func TestServiceRejectsUnsupportedUpload(t *testing.T) {
	tr := &fakeTranscriber{text: "unused"}
	s := newTestService(t, 2, tr, nil)

	created, err := s.Submit(context.Background(), bytes.NewReader([]byte("plain text")), "notes.xyz", Params{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	s.drain(t)

	got, err := s.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.Error == "" || got.Result != nil {
		t.Errorf("failed task must carry an error and no result: %+v", got)
	}
	if tr.calls.Load() != 0 {
		t.Error("transcriber must not run for rejected media")
	}
	assertDirEmpty(t, s.uploadDir)
}

func TestServiceDiarizationFailureDegrades(t *testing.T) {
	tr := &fakeTranscriber{text: "two voices"}
	dz := &fakeDiarizer{err: fmt.Errorf("sidecar down")}
	s := newTestService(t, 2, tr, dz)

	created, err := s.Submit(context.Background(), bytes.NewReader(stereoWAV(t)), "call.wav", Params{
		IncludeDiarization: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	s.drain(t)

	got, err := s.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("diarization failure must not fail the task, status = %s (error: %s)", got.Status, got.Error)
	}
	if got.Result == nil || got.Result.Text != "two voices" {
		t.Errorf("result = %+v", got.Result)
	}
	if got.Result.HasSpeakers() {
		t.Error("degraded result must carry no speakers")
	}
}

func TestServiceDiarizationMergesSpeakers(t *testing.T) {
	tr := &fakeTranscriber{text: "two voices"}
	dz := &fakeDiarizer{segments: []diarization.Segment{
		{Speaker: "SPEAKER_00", Start: 0, End: 0.5},
		{Speaker: "SPEAKER_01", Start: 0.5, End: 1.0},
	}}
	s := newTestService(t, 2, tr, dz)

	created, err := s.Submit(context.Background(), bytes.NewReader(stereoWAV(t)), "call.wav", Params{
		IncludeDiarization: true,
		IncludeTimestamps:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	s.drain(t)

	got, err := s.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("status = %s (error: %s)", got.Status, got.Error)
	}
	if !got.Result.HasSpeakers() || len(got.Result.Speakers) != 2 {
		t.Errorf("speakers not merged: %+v", got.Result)
	}
	if !got.Result.HasTimestamps() {
		t.Error("requested timestamps missing from result")
	}
}

func TestServiceHonorsProcessingCeiling(t *testing.T) {
	const ceiling = 2
	tr := &fakeTranscriber{text: "slow", delay: 30 * time.Millisecond}
	s := newTestService(t, ceiling, tr, nil)

	content := stereoWAV(t)
	ids := make([]string, 6)
	for i := range ids {
		created, err := s.Submit(context.Background(), bytes.NewReader(content), "bulk.wav", Params{})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		ids[i] = created.ID
	}
	s.drain(t)

	// Inference is additionally serialized by the exclusive permit.
	if p := tr.peak.Load(); p != 1 {
		t.Errorf("observed %d concurrent inference calls, want 1", p)
	}
	for _, id := range ids {
		got, err := s.Get(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != StatusCompleted {
			t.Errorf("task %s status = %s (error: %s)", id, got.Status, got.Error)
		}
	}
	assertDirEmpty(t, s.uploadDir)
}

func TestServiceQueuesBeyondCeiling(t *testing.T) {
	const ceiling = 1
	tr := &fakeTranscriber{text: "slow", delay: 200 * time.Millisecond}
	s := newTestService(t, ceiling, tr, nil)

	content := stereoWAV(t)
	ids := make([]string, 3)
	for i := range ids {
		created, err := s.Submit(context.Background(), bytes.NewReader(content), "bulk.wav", Params{})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		ids[i] = created.ID
	}

	// While the slot is held, the excess tasks must sit in queued.
	sawQueued := false
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_, processing, err := s.List(context.Background(), 10, 0, StatusProcessing)
		if err != nil {
			t.Fatal(err)
		}
		if processing > ceiling {
			t.Fatalf("observed %d tasks processing, ceiling is %d", processing, ceiling)
		}
		_, queued, err := s.List(context.Background(), 10, 0, StatusQueued)
		if err != nil {
			t.Fatal(err)
		}
		if processing == ceiling && queued > 0 {
			sawQueued = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !sawQueued {
		t.Error("never observed a queued task while the ceiling was saturated")
	}
	s.drain(t)

	for _, id := range ids {
		got, err := s.Get(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != StatusCompleted {
			t.Errorf("task %s status = %s (error: %s)", id, got.Status, got.Error)
		}
	}
}

func TestServiceDeleteMidFlightIsSafe(t *testing.T) {
	tr := &fakeTranscriber{text: "gone", delay: 100 * time.Millisecond}
	s := newTestService(t, 2, tr, nil)

	created, err := s.Submit(context.Background(), bytes.NewReader(stereoWAV(t)), "doomed.wav", Params{})
	if err != nil {
		t.Fatal(err)
	}

	// Give the worker time to enter processing, then delete under it.
	time.Sleep(30 * time.Millisecond)
	if err := s.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	s.drain(t)

	if _, err := s.Get(context.Background(), created.ID); err == nil {
		t.Error("deleted task reappeared after its worker finished")
	}
	assertDirEmpty(t, s.uploadDir)
}

func TestServiceSubmitRequiresFileName(t *testing.T) {
	tr := &fakeTranscriber{}
	s := newTestService(t, 1, tr, nil)
	defer s.drain(t)

	if _, err := s.Submit(context.Background(), bytes.NewReader(nil), "", Params{}); err == nil {
		t.Fatal("expected error for missing file name")
	}
}
