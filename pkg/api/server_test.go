package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/stablearp/pkg/converter"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := NewRouter()
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), "healthy")
	}
}

func TestCORSPreflight(t *testing.T) {
	w := httptest.NewRecorder()
	NewRouter().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/arpeggiate", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListAlgorithms(t *testing.T) {
	w := httptest.NewRecorder()
	NewRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/algorithms", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"linear", "random"}, body["algorithms"])
	assert.Equal(t, []string{"up", "down"}, body["directions"])
	assert.Contains(t, body["speeds"], "1/16")
}

func TestArpeggiateLinear(t *testing.T) {
	w := postJSON(t, NewRouter(), "/api/v1/arpeggiate", ArpRequest{
		Algorithm: "linear",
		Direction: "down",
		Notes:     []int{67, 60, 64},
		Steps:     5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ArpResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "linear", resp.Algorithm)
	assert.Equal(t, []int{67, 64, 60, 67, 64}, resp.Notes)
	assert.Equal(t, "G4", resp.Names[0])
}

func TestArpeggiateRandomIsStable(t *testing.T) {
	r := NewRouter()
	req := ArpRequest{Seed: 99, Notes: []int{48, 55, 60, 63}, Start: 32, Steps: 8}

	first := postJSON(t, r, "/api/v1/arpeggiate", req)
	second := postJSON(t, r, "/api/v1/arpeggiate", req)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, first.Body.String(), second.Body.String())

	var resp ArpResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp))
	assert.Equal(t, "random", resp.Algorithm)
	assert.ElementsMatch(t, []int{48, 55, 60, 63}, resp.Notes[:4])
	assert.ElementsMatch(t, []int{48, 55, 60, 63}, resp.Notes[4:])
}

func TestArpeggiateBadInput(t *testing.T) {
	r := NewRouter()
	tests := []struct {
		name string
		body any
	}{
		{"no notes", ArpRequest{}},
		{"bad algorithm", ArpRequest{Algorithm: "chaos", Notes: []int{60}}},
		{"bad direction", ArpRequest{Direction: "sideways", Notes: []int{60}}},
		{"bad speed", ArpRequest{Speed: "1/3", Notes: []int{60}}},
		{"note out of range", ArpRequest{Notes: []int{128}}},
		{"negative steps", ArpRequest{Notes: []int{60}, Steps: -1}},
		{"too many steps", ArpRequest{Notes: []int{60}, Steps: converter.MaxSteps + 1}},
		{"not json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/api/v1/arpeggiate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestRender(t *testing.T) {
	w := postJSON(t, NewRouter(), "/api/v1/render", ArpRequest{
		Algorithm: "linear",
		Notes:     []int{60, 64, 67},
		Steps:     6,
		Tempo:     90,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))

	perf, err := converter.NewMIDIConverter().ParseMIDI(w.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, perf.Spans, 6)
	assert.InDelta(t, 90, perf.Tempo, 0.01)
}

func chordSMF(t *testing.T) []byte {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)

	var track smf.Track
	track.Add(0, midi.NoteOn(0, 60, 100))
	track.Add(0, midi.NoteOn(0, 64, 100))
	track.Add(960, midi.NoteOff(0, 60))
	track.Add(0, midi.NoteOff(0, 64))
	track.Close(0)
	require.NoError(t, s.Add(track))

	var buf bytes.Buffer
	_, err := s.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func upload(t *testing.T, r http.Handler, query, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert"+query, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConvert(t *testing.T) {
	r := NewRouter()

	w := upload(t, r, "?algorithm=linear&speed=1/8", "chords.mid", chordSMF(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "chords.arp.mid")

	perf, err := converter.NewMIDIConverter().ParseMIDI(w.Body.Bytes())
	require.NoError(t, err)
	// two beats of eighths
	assert.Len(t, perf.Spans, 4)

	w = upload(t, r, "", "junk.mid", []byte("not a midi file"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, r, "?algorithm=chaos", "chords.mid", chordSMF(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", strings.NewReader(""))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetrics(t *testing.T) {
	r := NewRouter()
	postJSON(t, r, "/api/v1/arpeggiate", ArpRequest{Notes: []int{60, 62}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stablearp_api_requests_total")
	assert.Contains(t, w.Body.String(), "stablearp_notes_generated_total")
}
