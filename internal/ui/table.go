package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jannskiee/floe/internal/utils"
)

// FileTableItem represents a file in the table
type FileTableItem struct {
	Index int
	Name  string
	Size  int64
	Type  string
}

// FileTable renders the outgoing file list using lipgloss/table
type FileTable struct {
	items    []FileTableItem
	showType bool
}

// NewFileTable creates a new file table
func NewFileTable(items []FileTableItem) *FileTable {
	return &FileTable{
		items:    items,
		showType: true,
	}
}

// HideType hides the file type column
func (t *FileTable) HideType() *FileTable {
	t.showType = false
	return t
}

// View renders the table as a string
func (t *FileTable) View() string {
	if len(t.items) == 0 {
		return MutedStyle.Render("No files")
	}

	var headers []string
	if t.showType {
		headers = []string{"#", "Name", "Size", "Type"}
	} else {
		headers = []string{"#", "Name", "Size"}
	}

	var rows [][]string
	for _, item := range t.items {
		name := utils.TruncateString(item.Name, 50)
		size := utils.FormatSize(item.Size)

		row := []string{fmt.Sprintf("%d", item.Index), name, size}
		if t.showType {
			fileType := utils.TruncateString(item.Type, 20)
			row = append(row, fileType)
		}
		rows = append(rows, row)
	}

	tbl := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func RenderFileTable(items []FileTableItem) {
	fmt.Println(NewFileTable(items).View())
}

type TransferSummary struct {
	Status    string
	Files     int
	TotalSize string
	Duration  string
	Speed     string
}

// TransferSummaryView renders the end-of-session summary using
// go-pretty.
func TransferSummaryView(title string, summary TransferSummary) string {
	tw := table.NewWriter()
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Status", summary.Status},
		{"Files", summary.Files},
		{"Total Size", summary.TotalSize},
		{"Duration", summary.Duration},
		{"Avg Speed", summary.Speed},
	})
	tw.SetStyle(table.StyleRounded)

	return tw.Render()
}

func RenderTransferSummary(title string, summary TransferSummary) {
	fmt.Println(TransferSummaryView(title, summary))
}

type RoomInfo struct {
	RoomID   string
	RoomLink string
}

func NewRoomInfo(roomID, roomLink string) *RoomInfo {
	return &RoomInfo{
		RoomID:   roomID,
		RoomLink: roomLink,
	}
}

func (r *RoomInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s Room Created!\n\n%s Room ID:    %s\n%s Room Link:  %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconWeb, MutedStyle.Render(r.RoomLink),
	)

	return boxStyle.Render(content)
}
