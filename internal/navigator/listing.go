package navigator

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rescale/courier/internal/constants"
	"github.com/rescale/courier/internal/pathcodec"
	"github.com/rescale/courier/internal/rclone"
	"github.com/rescale/courier/internal/session"
)

// list renders the current directory of s. A listing failure shows an
// empty directory; back and cancel still work.
func (n *Navigator) list(ctx context.Context, s *session.Session) Outcome {
	dirs, err := n.lister.ListDirs(ctx, n.configs.UserConfigPath(s.UserID), s.Remote, s.Path)
	if err != nil {
		n.logger.Warn().Err(err).Str("remote", s.Remote).Str("path", s.Path).Msg("listing failed, showing empty directory")
		dirs = nil
	}

	page := Paginate(dirs, s.Page, constants.ItemsPerPage)
	s.Page = page.Index
	s.State = session.StateListing
	s.ResetOffers()

	var buttons []Button
	for _, d := range page.Items {
		child := rclone.JoinPath(s.Path, d)
		buttons = append(buttons, Button{
			Label:  "📁 " + label(d),
			Action: s.Offer(pathcodec.Nav(pathcodec.Encode(s.Remote, child)), session.Target{Remote: s.Remote, Path: child, Listed: true}),
		})
	}
	keyboard := grid(buttons)

	if page.Count > 1 {
		var row []Button
		if page.Index > 0 {
			row = append(row, Button{Label: "◀️ Prev", Action: s.Offer(pathcodec.Page(page.Index-1), session.Target{Remote: s.Remote, Path: s.Path, Page: page.Index - 1})})
		}
		row = append(row, Button{
			Label:  fmt.Sprintf("Page %d/%d", page.Index+1, page.Count),
			Action: s.Offer(pathcodec.PageInfo(), session.Target{Remote: s.Remote, Path: s.Path, Page: page.Index}),
		})
		if page.Index < page.Count-1 {
			row = append(row, Button{Label: "Next ▶️", Action: s.Offer(pathcodec.Page(page.Index+1), session.Target{Remote: s.Remote, Path: s.Path, Page: page.Index + 1})})
		}
		keyboard = append(keyboard, row)
	}

	keyboard = append(keyboard,
		[]Button{{Label: "✅ Select This Folder", Action: s.Offer(pathcodec.Select(pathcodec.Encode(s.Remote, s.Path)), session.Target{Remote: s.Remote, Path: s.Path, Listed: true})}},
		[]Button{n.backButton(s)},
		[]Button{n.cancelButton(s)},
	)

	return Outcome{Prompt: &Prompt{Text: listingText(s.Remote, s.Path), Keyboard: keyboard}}
}

func (n *Navigator) backButton(s *session.Session) Button {
	if s.Path == "" {
		return Button{Label: "🔙 Back to Remotes", Action: s.Offer(pathcodec.NavRoot(), session.Target{})}
	}
	parent := ParentPath(s.Path)
	return Button{
		Label:  "🔙 Back",
		Action: s.Offer(pathcodec.Nav(pathcodec.Encode(s.Remote, parent)), session.Target{Remote: s.Remote, Path: parent, Listed: true}),
	}
}

func listingText(remote, path string) string {
	return fmt.Sprintf("📂 %s:%s\nChoose a folder:", remote, path)
}

// Page is one page of a directory listing.
type Page struct {
	Items []string
	Index int // clamped to [0, Count-1]
	Count int // 0 for an empty listing
}

// Paginate slices items into pages of size and returns page index, clamped
// into range.
func Paginate(items []string, index, size int) Page {
	count := (len(items) + size - 1) / size
	if index >= count {
		index = count - 1
	}
	if index < 0 {
		index = 0
	}

	start := index * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	if start > end {
		start = end
	}
	return Page{Items: items[start:end], Index: index, Count: count}
}

// NormalizePath trims slashes, drops colons and strips a trailing
// file-like segment, so navigating into "videos/movie.mp4" lists "videos".
// Paths taken from a listing skip it; see targetPath.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, ":", "")
	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		if LooksLikeFile(path[i+1:]) {
			return path[:i]
		}
		return path
	}
	if LooksLikeFile(path) {
		return ""
	}
	return path
}

// targetPath returns the directory a target points at. Listed entries are
// known directories even when named like files ("John.Doe", "photos.jpg").
func targetPath(t session.Target) string {
	if t.Listed {
		return strings.Trim(t.Path, "/")
	}
	return NormalizePath(t.Path)
}

// LooksLikeFile reports whether name ends in an extension of 1 to 5
// characters containing at least one letter ("movie.mp4", "notes.txt",
// but not "v1.2" or ".config").
func LooksLikeFile(name string) bool {
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return false
	}
	ext := name[i+1:]
	if len(ext) > 5 {
		return false
	}
	letter := false
	for _, r := range ext {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
		default:
			return false
		}
	}
	return letter
}

// ParentPath returns the parent of a remote path, "" at the root.
func ParentPath(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// label truncates a button label.
func label(name string) string {
	r := []rune(name)
	if len(r) > constants.ButtonLabelLen {
		return string(r[:constants.ButtonLabelLen]) + "..."
	}
	return name
}

// grid lays buttons out ButtonsPerRow to a row.
func grid(buttons []Button) [][]Button {
	var rows [][]Button
	for i := 0; i < len(buttons); i += constants.ButtonsPerRow {
		end := i + constants.ButtonsPerRow
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return rows
}
