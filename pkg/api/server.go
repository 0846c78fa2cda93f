// Package api provides the REST API server for stablearp
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/stablearp/pkg/arp"
	"github.com/james-see/stablearp/pkg/converter"
	"github.com/james-see/stablearp/pkg/debug"
	"github.com/james-see/stablearp/pkg/params"
)

// DefaultSteps is used when a request leaves steps unset
const DefaultSteps = 16

// MaxUploadSize bounds /convert uploads
const MaxUploadSize = 4 << 20

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stablearp_api_requests_total",
		Help: "API requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	notesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stablearp_notes_generated_total",
		Help: "Arpeggiator steps produced by the API, rests included",
	})

	renderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stablearp_render_duration_seconds",
		Help:    "Time spent arpeggiating a request",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"endpoint"})
)

// @title stablearp API
// @version 1.0
// @description Deterministic arpeggiator: note sequences and MIDI rendering
// @host localhost:8080
// @BasePath /api/v1

// ArpRequest selects the arpeggiator settings and the held chord. Every
// field except notes has a default.
type ArpRequest struct {
	Algorithm string  `json:"algorithm" form:"algorithm" example:"random"`
	Seed      int64   `json:"seed" form:"seed" example:"42"`
	Direction string  `json:"direction" form:"direction" example:"up"`
	Zigzag    bool    `json:"zigzag" form:"zigzag"`
	Speed     string  `json:"speed" form:"speed" example:"1/16"`
	Tempo     float64 `json:"tempo" form:"tempo" example:"120"`
	Notes     []int   `json:"notes" form:"-" example:"60,64,67"`
	Start     float64 `json:"start" form:"start"`
	Steps     int     `json:"steps" form:"steps" example:"16"`
}

// ArpResponse is the rendered sequence, -1 marking rests
type ArpResponse struct {
	Algorithm string   `json:"algorithm"`
	Notes     []int    `json:"notes"`
	Names     []string `json:"names"`
}

// Parameters builds a parameter set from the request, filling defaults
func (r *ArpRequest) Parameters() (*params.Parameters, error) {
	s := params.New().Snapshot()

	var err error
	if r.Algorithm != "" {
		if s.Algorithm, err = params.ParseAlgo(r.Algorithm); err != nil {
			return nil, err
		}
	}
	if r.Direction != "" {
		if s.Direction, err = params.ParseDirection(r.Direction); err != nil {
			return nil, err
		}
	}
	if r.Speed != "" {
		if s.Speed, err = params.ParseSpeed(r.Speed); err != nil {
			return nil, err
		}
	}
	if r.Tempo < 0 {
		return nil, fmt.Errorf("tempo must be positive, got %v", r.Tempo)
	}
	s.Seed = r.Seed
	s.Zigzag = r.Zigzag

	p := params.New()
	p.Apply(s)
	return p, nil
}

func (r *ArpRequest) chord() (arp.NoteSet, error) {
	var set arp.NoteSet
	for _, n := range r.Notes {
		if n < 0 || n > 127 {
			return arp.NoteSet{}, fmt.Errorf("note %d out of range 0-127", n)
		}
		set.Add(n)
	}
	if set.IsEmpty() {
		return arp.NoteSet{}, converter.ErrNoNotes
	}
	return set, nil
}

func (r *ArpRequest) steps() int {
	if r.Steps == 0 {
		return DefaultSteps
	}
	return r.Steps
}

// NewRouter builds the gin engine with every route registered
func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/algorithms", listAlgorithms)
		v1.POST("/arpeggiate", handleArpeggiate)
		v1.POST("/render", handleRender)
		v1.POST("/convert", handleConvert)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	debug.Log("api", "listening on :%d", port)
	return NewRouter().Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func fail(c *gin.Context, endpoint string, status int, err error) {
	requestsTotal.WithLabelValues(endpoint, "error").Inc()
	debug.Log("api", "%s: %v", endpoint, err)
	c.JSON(status, gin.H{"error": err.Error()})
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "stablearp",
	})
}

// listAlgorithms godoc
// @Summary List arpeggiator settings
// @Description Returns the algorithms, linear directions and speeds accepted by the other endpoints
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/algorithms [get]
func listAlgorithms(c *gin.Context) {
	var algos, speeds []string
	for _, a := range params.Algos() {
		algos = append(algos, a.String())
	}
	for _, s := range params.Speeds() {
		speeds = append(speeds, s.String())
	}
	c.JSON(http.StatusOK, gin.H{
		"algorithms": algos,
		"directions": []string{params.Up.String(), params.Down.String()},
		"speeds":     speeds,
	})
}

func render(endpoint string, req *ArpRequest) (*converter.Converter, *converter.Pattern, error) {
	timer := prometheus.NewTimer(renderDuration.WithLabelValues(endpoint))
	defer timer.ObserveDuration()

	p, err := req.Parameters()
	if err != nil {
		return nil, nil, err
	}
	notes, err := req.chord()
	if err != nil {
		return nil, nil, err
	}

	conv := converter.New(p)
	conv.SetTempo(req.Tempo)
	pattern, err := conv.RenderChord(notes, req.Start, req.steps())
	if err != nil {
		return nil, nil, err
	}
	notesGenerated.Add(float64(len(pattern.Steps)))
	return conv, pattern, nil
}

// handleArpeggiate godoc
// @Summary Arpeggiate a chord
// @Description Returns the note chosen at each slot for a held chord
// @Tags arpeggiate
// @Accept json
// @Produce json
// @Param request body ArpRequest true "Settings and held notes"
// @Success 200 {object} ArpResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/arpeggiate [post]
func handleArpeggiate(c *gin.Context) {
	var req ArpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "arpeggiate", http.StatusBadRequest, err)
		return
	}

	conv, pattern, err := render("arpeggiate", &req)
	if err != nil {
		fail(c, "arpeggiate", http.StatusBadRequest, err)
		return
	}

	resp := ArpResponse{Algorithm: conv.Params().Algorithm.Get().String(), Notes: pattern.Notes()}
	for _, n := range resp.Notes {
		resp.Names = append(resp.Names, arp.NoteName(n))
	}

	requestsTotal.WithLabelValues("arpeggiate", "ok").Inc()
	c.JSON(http.StatusOK, resp)
}

// handleRender godoc
// @Summary Render a chord to MIDI
// @Description Arpeggiates a held chord and returns a Standard MIDI File
// @Tags arpeggiate
// @Accept json
// @Produce audio/midi
// @Param request body ArpRequest true "Settings and held notes"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/render [post]
func handleRender(c *gin.Context) {
	var req ArpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, "render", http.StatusBadRequest, err)
		return
	}

	conv, pattern, err := render("render", &req)
	if err != nil {
		fail(c, "render", http.StatusBadRequest, err)
		return
	}

	data, err := conv.MIDI().GenerateMIDI(pattern)
	if err != nil {
		fail(c, "render", http.StatusInternalServerError, err)
		return
	}

	requestsTotal.WithLabelValues("render", "ok").Inc()
	c.Header("Content-Disposition", "attachment; filename=arp.mid")
	c.Data(http.StatusOK, "audio/midi", data)
}

// handleConvert godoc
// @Summary Arpeggiate a MIDI file
// @Description Upload a MIDI file of held chords and receive the arpeggiated MIDI file
// @Tags convert
// @Accept multipart/form-data
// @Produce audio/midi
// @Param file formData file true "MIDI file to arpeggiate"
// @Param algorithm query string false "linear or random (default: random)"
// @Param seed query int false "Random seed"
// @Param direction query string false "up or down"
// @Param zigzag query bool false "Bounce at the ends"
// @Param speed query string false "1/16, 1/8, 1/4 or 1/2"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/convert [post]
func handleConvert(c *gin.Context) {
	var req ArpRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		fail(c, "convert", http.StatusBadRequest, err)
		return
	}
	p, err := req.Parameters()
	if err != nil {
		fail(c, "convert", http.StatusBadRequest, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, "convert", http.StatusBadRequest, errors.New("no file uploaded"))
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		fail(c, "convert", http.StatusBadRequest, errors.New("failed to read file"))
		return
	}
	if converter.DetectFormatFromContent(data) != converter.FormatMIDI {
		fail(c, "convert", http.StatusBadRequest, fmt.Errorf("%w: %s", converter.ErrUnsupportedFormat, header.Filename))
		return
	}

	timer := prometheus.NewTimer(renderDuration.WithLabelValues("convert"))
	result, err := converter.New(p).ArpeggiateMIDI(data)
	timer.ObserveDuration()
	if err != nil {
		fail(c, "convert", http.StatusBadRequest, err)
		return
	}

	requestsTotal.WithLabelValues("convert", "ok").Inc()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(converter.OutputPath(header.Filename))))
	c.Data(http.StatusOK, "audio/midi", result)
}
