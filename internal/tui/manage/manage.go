package manage

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ksdme/cursorkeep/internal/backup"
	"github.com/ksdme/cursorkeep/internal/events"
	"github.com/ksdme/cursorkeep/internal/refresh"
	"github.com/ksdme/cursorkeep/internal/store"
	"github.com/ksdme/cursorkeep/internal/tui/colors"
	"github.com/ksdme/cursorkeep/internal/utils"
)

type SnapshotsUpdateMsg struct {
	Snapshots []backup.Snapshot
	Err       error
}

type refreshDoneMsg struct {
	Email string
	Err   error
}

type batchDoneMsg struct {
	Result refresh.BatchResult
}

type backupDoneMsg struct {
	Path string
	Err  error
}

type deleteDoneMsg struct {
	Path string
	Err  error
}

type exportDoneMsg struct {
	Count int
	Err   error
}

type folderChangedMsg struct{}

type accountsRefreshedMsg struct {
	Count int
}

// The screen listing account snapshots from the backup folder along
// with the operations on them.
type Model struct {
	store  *store.Store
	worker *refresh.Worker
	dir    string

	table     table.Model
	snapshots []backup.Snapshot

	status  string
	failed  bool
	busy    bool
	pending *backup.Snapshot

	Width    int
	Height   int
	KeyMap   KeyMap
	Renderer *lipgloss.Renderer
	Colors   colors.ColorPalette
}

func NewModel(
	s *store.Store,
	worker *refresh.Worker,
	dir string,
	renderer *lipgloss.Renderer,
	palette colors.ColorPalette,
) Model {
	initialWidth := 80
	initialHeight := 24

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Foreground(palette.Muted).
		Bold(false).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(palette.Muted).
		BorderBottom(true)
	styles.Selected = styles.Selected.
		Foreground(palette.Accent).
		Bold(false)

	accounts := table.New(
		table.WithColumns(makeColumns(initialWidth)),
		table.WithRows([]table.Row{}),
		table.WithHeight(initialHeight),
		table.WithFocused(true),
		table.WithStyles(styles),
	)

	return Model{
		store:  s,
		worker: worker,
		dir:    dir,

		table: accounts,

		Width:    initialWidth,
		Height:   initialHeight,
		KeyMap:   DefaultKeyMap(),
		Renderer: renderer,
		Colors:   palette,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadSnapshots,
		m.listenFolder,
		m.listenRefreshes,
	)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(m.Width)
		m.table.SetHeight(m.Height - 2)
		m.table.SetColumns(makeColumns(m.Width))

	case tea.KeyMsg:
		// A pending delete only understands the confirmation keys.
		if m.pending != nil {
			switch {
			case key.Matches(msg, m.KeyMap.Confirm):
				snapshot := *m.pending
				m.pending = nil
				m.busy = true
				m.status = "deleting " + snapshot.Account.Email
				m.failed = false
				return m, m.deleteSnapshot(snapshot)

			case key.Matches(msg, m.KeyMap.Cancel):
				m.pending = nil
				m.status = ""
			}
			return m, nil
		}

		if m.busy {
			break
		}

		switch {
		case key.Matches(msg, m.KeyMap.Refresh):
			if snapshot, ok := m.selected(); ok {
				m.busy = true
				m.status = "refreshing " + snapshot.Account.Email
				m.failed = false
				return m, m.refreshSnapshot(snapshot)
			}

		case key.Matches(msg, m.KeyMap.RefreshAll):
			if len(m.snapshots) > 0 {
				m.busy = true
				m.status = fmt.Sprintf("refreshing %d accounts", len(m.snapshots))
				m.failed = false
				return m, m.refreshAll
			}

		case key.Matches(msg, m.KeyMap.Backup):
			if snapshot, ok := m.selected(); ok {
				m.busy = true
				m.status = "backing up " + snapshot.Account.Email
				m.failed = false
				return m, m.backupSnapshot(snapshot)
			}

		case key.Matches(msg, m.KeyMap.Delete):
			if snapshot, ok := m.selected(); ok {
				m.pending = &snapshot
				m.status = fmt.Sprintf("delete %s? (y/n)", snapshot.Account.Email)
				m.failed = false
			}
			return m, nil

		case key.Matches(msg, m.KeyMap.Export):
			m.busy = true
			m.status = "exporting accounts"
			m.failed = false
			return m, m.exportAccounts
		}

	case SnapshotsUpdateMsg:
		if msg.Err != nil {
			m.status = msg.Err.Error()
			m.failed = true
			return m, nil
		}

		m.snapshots = msg.Snapshots
		m.table.SetRows(makeRows(msg.Snapshots))
		if cursor := m.table.Cursor(); cursor >= len(msg.Snapshots) {
			m.table.SetCursor(max(0, len(msg.Snapshots)-1))
		}
		return m, nil

	case refreshDoneMsg:
		m.busy = false
		if msg.Err != nil {
			m.status = fmt.Sprintf("refreshing %s failed: %v", msg.Email, msg.Err)
			m.failed = true
			return m, nil
		}
		m.status = "refreshed " + msg.Email
		m.failed = false
		return m, m.loadSnapshots

	case batchDoneMsg:
		m.busy = false
		m.status = fmt.Sprintf(
			"refreshed %d accounts, %d failed",
			msg.Result.Succeeded,
			msg.Result.Failed,
		)
		m.failed = msg.Result.Failed > 0
		return m, m.loadSnapshots

	case backupDoneMsg:
		m.busy = false
		if msg.Err != nil {
			m.status = fmt.Sprintf("backup failed: %v", msg.Err)
			m.failed = true
			return m, nil
		}
		m.status = "backed up to " + msg.Path
		m.failed = false
		return m, m.loadSnapshots

	case deleteDoneMsg:
		m.busy = false
		if msg.Err != nil {
			m.status = fmt.Sprintf("delete failed: %v", msg.Err)
			m.failed = true
			return m, nil
		}
		m.status = "deleted " + msg.Path
		m.failed = false
		return m, m.loadSnapshots

	case exportDoneMsg:
		m.busy = false
		if msg.Err != nil {
			m.status = fmt.Sprintf("export failed: %v", msg.Err)
			m.failed = true
			return m, nil
		}
		m.status = fmt.Sprintf("exported %d accounts", msg.Count)
		m.failed = false
		return m, m.loadSnapshots

	// The backup folder changed outside the program, reload the
	// listing and rearm the listener.
	case folderChangedMsg:
		return m, tea.Batch(m.loadSnapshots, m.listenFolder)

	case accountsRefreshedMsg:
		m.status = fmt.Sprintf("background refresh updated %d accounts", msg.Count)
		m.failed = false
		return m, tea.Batch(m.loadSnapshots, m.listenRefreshes)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.snapshots) == 0 {
		return utils.
			Box(m.Width, m.Height, true, true).
			Foreground(m.Colors.Muted).
			Render("no account backups in " + m.dir)
	}

	status := m.status
	style := m.Renderer.NewStyle().Foreground(m.Colors.Muted)
	if m.failed {
		style = style.Foreground(m.Colors.Error)
	}

	return lipgloss.JoinVertical(
		lipgloss.Top,
		m.table.View(),
		style.PaddingTop(1).Render(status),
	)
}

func (m Model) Help() []key.Binding {
	if m.pending != nil {
		return []key.Binding{m.KeyMap.Confirm, m.KeyMap.Cancel}
	}

	return []key.Binding{
		m.KeyMap.Refresh,
		m.KeyMap.RefreshAll,
		m.KeyMap.Backup,
		m.KeyMap.Delete,
		m.KeyMap.Export,
	}
}

func (m Model) selected() (backup.Snapshot, bool) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.snapshots) {
		return backup.Snapshot{}, false
	}
	return m.snapshots[cursor], true
}

func (m Model) loadSnapshots() tea.Msg {
	snapshots, err := backup.ListSnapshots(m.dir)
	return SnapshotsUpdateMsg{Snapshots: snapshots, Err: err}
}

func (m Model) refreshSnapshot(snapshot backup.Snapshot) tea.Cmd {
	return func() tea.Msg {
		err := m.worker.RefreshSnapshot(context.Background(), &snapshot)
		return refreshDoneMsg{Email: snapshot.Account.Email, Err: err}
	}
}

func (m Model) refreshAll() tea.Msg {
	snapshots := make([]backup.Snapshot, len(m.snapshots))
	copy(snapshots, m.snapshots)
	result := m.worker.RefreshSnapshots(context.Background(), snapshots)
	return batchDoneMsg{Result: result}
}

func (m Model) backupSnapshot(snapshot backup.Snapshot) tea.Cmd {
	return func() tea.Msg {
		path, err := backup.Backup(
			context.Background(),
			m.store,
			m.dir,
			snapshot.Account.Email,
		)
		return backupDoneMsg{Path: path, Err: err}
	}
}

// Deleting a snapshot only removes the file from the backup folder.
// The account row stays in the database.
func (m Model) deleteSnapshot(snapshot backup.Snapshot) tea.Cmd {
	return func() tea.Msg {
		err := backup.Remove(snapshot.Path)
		return deleteDoneMsg{Path: snapshot.Path, Err: err}
	}
}

func (m Model) exportAccounts() tea.Msg {
	count, err := m.store.ExportFlatFiles(context.Background(), m.dir)
	return exportDoneMsg{Count: count, Err: err}
}

func (m Model) listenFolder() tea.Msg {
	if _, aborted := events.BackupFolderChangedSignal.Wait(m.dir); aborted {
		return nil
	}
	return folderChangedMsg{}
}

func (m Model) listenRefreshes() tea.Msg {
	count, aborted := events.AccountsRefreshedSignal.Wait(events.AccountsTopic)
	if aborted {
		return nil
	}
	return accountsRefreshedMsg{Count: count}
}

type KeyMap struct {
	Refresh    key.Binding
	RefreshAll key.Binding
	Backup     key.Binding
	Delete     key.Binding
	Export     key.Binding
	Confirm    key.Binding
	Cancel     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		RefreshAll: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh all"),
		),
		Backup: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "backup"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "cancel"),
		),
	}
}

func makeRows(snapshots []backup.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(snapshots))
	for _, snapshot := range snapshots {
		account := snapshot.Account

		updated := ""
		if !snapshot.ModTime.IsZero() {
			updated = utils.RoundedAge(time.Since(snapshot.ModTime)) + " ago"
		}

		rows = append(rows, table.Row{
			account.Domain,
			account.Email,
			account.Password,
			account.Quota,
			account.DaysRemaining,
			updated,
		})
	}
	return rows
}

func makeColumns(width int) []table.Column {
	domain := width * 15 / 100
	password := width * 15 / 100
	quota := width * 12 / 100
	days := width * 8 / 100
	updated := width * 12 / 100
	email := width - domain - password - quota - days - updated

	return []table.Column{
		{Title: "Domain", Width: domain},
		{Title: "Email", Width: email},
		{Title: "Password", Width: password},
		{Title: "Quota", Width: quota},
		{Title: "Days", Width: days},
		{Title: "Updated", Width: updated},
	}
}
