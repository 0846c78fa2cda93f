// Package tui provides the live arpeggiator terminal interface for stablearp
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/stablearp/pkg/arp"
	"github.com/james-see/stablearp/pkg/converter"
	"github.com/james-see/stablearp/pkg/debug"
	"github.com/james-see/stablearp/pkg/params"
	"github.com/james-see/stablearp/pkg/sequencer"
)

// Acid-inspired color scheme (303/acid aesthetic)
var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			Width(11)

	valueStyle = lipgloss.NewStyle().
			Foreground(acidYellow).
			Bold(true)

	heldKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(acidGreen).
			Bold(true)

	keyStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	noteStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true).
			Width(5)

	restStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Width(5)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(acidGreen).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateLive State = iota
	StateFilePicker
	StateConverting
	StateResult
)

// keyRow maps one octave of semitones onto the number row
const keyRow = "1234567890-="

const (
	historyLen = 16
	minTempo   = 20
	maxTempo   = 300
)

// Model represents the TUI model
type Model struct {
	state  State
	params *params.Parameters
	seq    *sequencer.Sequencer

	playing  bool
	tickGen  int
	slot     float64
	tempo    float64
	octave   int
	lastNote int
	history  []int

	filePicker   filepicker.Model
	spinner      spinner.Model
	selectedFile string
	outputFile   string
	err          error
	width        int
	height       int
}

// tickMsg advances the live clock. gen ties it to one play run so ticks
// left over from a stopped run are dropped.
type tickMsg struct {
	gen int
}

// conversionDoneMsg signals conversion completion
type conversionDoneMsg struct {
	outputFile string
	err        error
}

// New creates a TUI model driving a sequencer bound to p
func New(p *params.Parameters, tempo float64) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(acidGreen)

	if tempo <= 0 {
		tempo = 120
	}

	return Model{
		state:      StateLive,
		params:     p,
		seq:        sequencer.New(p),
		tempo:      tempo,
		octave:     4,
		lastNote:   arp.NoNote,
		filePicker: fp,
		spinner:    s,
	}
}

// Close releases the sequencer's parameter subscriptions
func (m Model) Close() {
	m.seq.Close()
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) interval() time.Duration {
	perBeat := m.seq.Speed().PerBeat()
	return time.Duration(float64(time.Minute) / (m.tempo * perBeat))
}

func (m Model) tick() tea.Cmd {
	gen := m.tickGen
	return tea.Tick(m.interval(), func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// step emits the note at the current slot and moves one slot on
func (m Model) step() Model {
	note := m.seq.Tick(m.slot)
	m.lastNote = note
	m.history = append(m.history, note)
	if len(m.history) > historyLen {
		m.history = m.history[len(m.history)-historyLen:]
	}
	m.slot++
	debug.LogEvery(32, "tui", "slot %v note %s", m.slot, arp.NoteName(note))
	return m
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateLive
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			return m, tea.Batch(m.spinner.Tick, m.performConversion())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateLive:
			return m.updateLive(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case tickMsg:
		if !m.playing || msg.gen != m.tickGen {
			return m, nil
		}
		m = m.step()
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateLive(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if i := strings.Index(keyRow, key); i >= 0 && len(key) == 1 {
		note := (m.octave+1)*12 + i
		if note <= 127 {
			if m.seq.Held().Contains(note) {
				m.seq.NoteOff(note)
			} else {
				m.seq.NoteOn(note)
			}
		}
		return m, nil
	}

	switch key {
	case " ":
		m.playing = !m.playing
		m.tickGen++
		if m.playing {
			return m, m.tick()
		}
	case "right":
		if !m.playing {
			m = m.step()
		}
	case "left":
		if !m.playing {
			m.slot--
		}
	case "up":
		m.tempo = min(m.tempo+5, maxTempo)
	case "down":
		m.tempo = max(m.tempo-5, minTempo)
	case "[":
		if m.octave > -1 {
			m.octave--
		}
	case "]":
		if m.octave < 8 {
			m.octave++
		}
	case "m":
		if m.params.Algorithm.Get() == params.AlgoRandom {
			m.params.Algorithm.Set(params.AlgoLinear)
		} else {
			m.params.Algorithm.Set(params.AlgoRandom)
		}
	case "d":
		if m.params.Linear.Direction.Get() == params.Up {
			m.params.Linear.Direction.Set(params.Down)
		} else {
			m.params.Linear.Direction.Set(params.Up)
		}
	case "z":
		m.params.Linear.Zigzag.Set(!m.params.Linear.Zigzag.Get())
	case "r":
		m.params.Random.PickNewKey()
	case "s":
		speeds := params.Speeds()
		cur := m.params.Speed.Get()
		for i, sp := range speeds {
			if sp == cur {
				m.params.Speed.Set(speeds[(i+1)%len(speeds)])
				break
			}
		}
	case "backspace":
		m.seq.Stop()
		m.slot = 0
		m.history = nil
		m.lastNote = arp.NoNote
	case "c":
		m.seq.SetHeld(arp.NoteSet{})
	case "o":
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateLive
		m.err = nil
		m.selectedFile = ""
		m.outputFile = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) performConversion() tea.Cmd {
	input := m.selectedFile
	p := m.params
	return func() tea.Msg {
		out := converter.OutputPath(input)
		if err := converter.New(p).ConvertFile(input, out); err != nil {
			return conversionDoneMsg{err: err}
		}
		return conversionDoneMsg{outputFile: out}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateLive:
		s.WriteString(m.viewLive())
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("1-=: toggle notes • [/]: octave • space: play/stop • ←/→: seek/step • ↑/↓: tempo\n" +
			"m: algorithm • d: direction • z: zigzag • s: speed • r: reseed • c: clear • ⌫: reset • o: convert file • q: quit"))
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	return s.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

func (m Model) viewLive() string {
	var s strings.Builder

	status := " STOPPED "
	if m.playing {
		status = " PLAYING "
	}
	s.WriteString(titleStyle.Render(status))
	s.WriteString("\n\n")

	snap := m.params.Snapshot()
	s.WriteString(row("algorithm", snap.Algorithm.String()))
	switch snap.Algorithm {
	case params.AlgoLinear:
		s.WriteString(row("direction", snap.Direction.String()))
		s.WriteString(row("zigzag", fmt.Sprintf("%v", snap.Zigzag)))
	case params.AlgoRandom:
		s.WriteString(row("seed", fmt.Sprintf("%d", snap.Seed)))
	}
	s.WriteString(row("speed", snap.Speed.String()))
	s.WriteString(row("tempo", fmt.Sprintf("%.0f bpm", m.tempo)))
	s.WriteString(row("slot", fmt.Sprintf("%.0f", m.slot)))
	s.WriteString("\n")

	held := m.seq.Held()
	base := (m.octave + 1) * 12
	for i, k := range keyRow {
		label := fmt.Sprintf(" %c ", k)
		if held.Contains(base + i) {
			s.WriteString(heldKeyStyle.Render(label))
		} else {
			s.WriteString(keyStyle.Render(label))
		}
	}
	s.WriteString(keyStyle.Render(fmt.Sprintf("  C%d", m.octave)))
	s.WriteString("\n")
	s.WriteString(row("held", strings.Join(noteNames(held.Notes()), " ")))
	s.WriteString("\n")

	for _, n := range m.history {
		if n == arp.NoNote {
			s.WriteString(restStyle.Render("-"))
		} else {
			s.WriteString(noteStyle.Render(arp.NoteName(n)))
		}
	}

	return boxStyle.Render(s.String())
}

func noteNames(notes []int) []string {
	names := make([]string, len(notes))
	for i, n := range notes {
		names[i] = arp.NoteName(n)
	}
	return names
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT MIDI FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" ARPEGGIATING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Arpeggiating %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	s.WriteString(valueStyle.Render(fmt.Sprintf("  %s @ %s", m.params.Algorithm.Get(), m.params.Speed.Get())))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Conversion failed: %s", m.err.Error())))
	} else {
		s.WriteString(titleStyle.Render(" SUCCESS "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ Conversion complete!"))
		s.WriteString("\n\n")
		s.WriteString(fmt.Sprintf("Input:  %s\n", filepath.Base(m.selectedFile)))
		s.WriteString(fmt.Sprintf("Output: %s", filepath.Base(m.outputFile)))
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   ____ _____  _    ____  _     _____    _    ____  ____
  / ___|_   _|/ \  | __ )| |   | ____|  / \  |  _ \|  _ \
  \___ \ | | / _ \ |  _ \| |   |  _|   / _ \ | |_) | |_) |
   ___) || |/ ___ \| |_) | |___| |___ / ___ \|  _ <|  __/
  |____/ |_/_/   \_\____/|_____|_____/_/   \_\_| \_\_|
`
	return lipgloss.NewStyle().Foreground(acidGreen).Render(logo)
}

// Run starts the TUI application
func Run(p *params.Parameters, tempo float64) error {
	m := New(p, tempo)
	defer m.Close()

	prog := tea.NewProgram(m, tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
