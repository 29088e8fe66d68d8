package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jannskiee/floe/internal/transfer"
	"github.com/jannskiee/floe/internal/utils"
)

// ProgressItem represents a single file transfer progress
type ProgressItem struct {
	Name       string
	Total      int64
	Current    int64
	Speed      float64
	ETA        time.Duration
	IsComplete bool
	HasError   bool
	ErrorMsg   string
}

// ProgressModel is the bubbletea model behind the live transfer
// display: one bar per file, plus an optional header line reporting
// the queue position.
type ProgressModel struct {
	items      []*ProgressItem
	progresses []progress.Model
	header     string
	quitting   bool
	mu         sync.RWMutex
}

var _ tea.Model = (*ProgressModel)(nil)

// NewProgressModel creates a new multi-file progress model
func NewProgressModel(fileNames []string, fileSizes []int64) *ProgressModel {
	items := make([]*ProgressItem, len(fileNames))
	progresses := make([]progress.Model, len(fileNames))

	for i := range fileNames {
		items[i] = &ProgressItem{
			Name:  fileNames[i],
			Total: fileSizes[i],
		}

		p := progress.New(
			progress.WithGradient(ProgressStart, ProgressEnd),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		)
		progresses[i] = p
	}

	return &ProgressModel{
		items:      items,
		progresses: progresses,
	}
}

// TickMsg is sent periodically to refresh the progress display
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *ProgressModel) Init() tea.Cmd {
	return tickCmd()
}

func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case TickMsg:
		if !m.AllComplete() {
			return m, tickCmd()
		}
		return m, nil

	case tea.WindowSizeMsg:
		for i := range m.progresses {
			m.progresses[i].Width = min(30, msg.Width-50)
		}
		return m, nil

	case progress.FrameMsg:
		var cmds []tea.Cmd
		for i := range m.progresses {
			newModel, cmd := m.progresses[i].Update(msg)
			m.progresses[i] = newModel.(progress.Model)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// SetHeader sets the status line rendered above the bars.
func (m *ProgressModel) SetHeader(header string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.header = header
}

// UpdateStats applies a transfer snapshot to one file's display state.
func (m *ProgressModel) UpdateStats(id int, stats transfer.Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id < 0 || id >= len(m.items) {
		return
	}
	item := m.items[id]
	item.Current = int64(stats.Transferred)
	item.Speed = stats.Speed
	item.ETA = stats.ETA
	if item.Total > 0 && item.Current >= item.Total {
		item.IsComplete = true
	}
}

// MarkComplete marks a file as complete
func (m *ProgressModel) MarkComplete(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id >= 0 && id < len(m.items) {
		m.items[id].IsComplete = true
		m.items[id].Current = m.items[id].Total
	}
}

// MarkError marks a file as having an error
func (m *ProgressModel) MarkError(id int, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id >= 0 && id < len(m.items) {
		m.items[id].HasError = true
		m.items[id].ErrorMsg = errMsg
	}
}

// AllComplete returns true if all files are complete
func (m *ProgressModel) AllComplete() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, item := range m.items {
		if !item.IsComplete && !item.HasError {
			return false
		}
	}
	return true
}

func (m *ProgressModel) View() string {
	if m.quitting {
		return ""
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var b strings.Builder

	if m.header != "" {
		b.WriteString(BoldStyle.Render(m.header))
		b.WriteString("\n")
	}

	for i, item := range m.items {
		var icon string
		var nameStyle lipgloss.Style

		if item.HasError {
			icon = IconError
			nameStyle = ErrorStyle
		} else if item.IsComplete {
			icon = IconSuccess
			nameStyle = SuccessStyle
		} else {
			icon = IconFile
			nameStyle = lipgloss.NewStyle()
		}

		name := utils.TruncateString(item.Name, 30)
		b.WriteString(fmt.Sprintf("%s %s ", icon, nameStyle.Render(name)))

		if item.Total > 0 {
			percent := float64(item.Current) / float64(item.Total)
			b.WriteString(m.progresses[i].ViewAs(percent))
			b.WriteString(fmt.Sprintf(" %5.1f%%", percent*100))
		} else {
			b.WriteString(m.progresses[i].ViewAs(1))
			b.WriteString(" 100.0%")
		}

		if !item.IsComplete && !item.HasError && item.Speed > 0 {
			b.WriteString(MutedStyle.Render(fmt.Sprintf(" %s", utils.FormatSpeed(item.Speed))))
			if item.ETA > 0 {
				b.WriteString(MutedStyle.Render(fmt.Sprintf(" ETA: %s", utils.FormatETA(item.ETA))))
			}
		}

		b.WriteString(MutedStyle.Render(fmt.Sprintf(" (%s/%s)",
			utils.FormatSize(item.Current),
			utils.FormatSize(item.Total))))

		b.WriteString("\n")
	}

	return b.String()
}

// Renderer runs a progress model in an inline bubbletea program.
// Inline mode keeps the terminal output printed before the transfer
// visible above the bars.
type Renderer struct {
	program *tea.Program
	wg      sync.WaitGroup
	once    sync.Once
}

// NewRenderer starts the program for model.
func NewRenderer(model *ProgressModel) *Renderer {
	r := &Renderer{program: tea.NewProgram(model)}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
	return r
}

// Stop quits the program after its final paint and waits for it to
// release the terminal.
func (r *Renderer) Stop() {
	r.once.Do(func() {
		r.program.Quit()
	})
	r.wg.Wait()
}
