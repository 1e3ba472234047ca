package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rescale/courier/internal/session"
)

type fakeLister struct {
	remotes []string
	dirs    map[string][]string // "remote:path" -> dirs
	fail    bool
	calls   []string
}

func (f *fakeLister) ListRemotes(context.Context, string) ([]string, error) {
	return f.remotes, nil
}

func (f *fakeLister) ListDirs(_ context.Context, _ string, remote, path string) ([]string, error) {
	key := remote + ":" + path
	f.calls = append(f.calls, key)
	if f.fail {
		return nil, errors.New("exit status 3")
	}
	return f.dirs[key], nil
}

type fakeConfigs struct{ has bool }

func (c fakeConfigs) HasUserConfig(int64) bool { return c.has }
func (c fakeConfigs) UserConfigPath(int64) string { return "/data/config/1/rclone.conf" }

func numbered(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("dir%02d", i)
	}
	return out
}

func newFixture(t *testing.T, lister *fakeLister) (*Navigator, *session.Session) {
	t.Helper()
	nav := New(lister, fakeConfigs{has: true}, nil)
	st := session.NewStore()
	s, err := st.Open(1, 1, session.StateAwaitingPlatform)
	if err != nil {
		t.Fatal(err)
	}
	return nav, s
}

// find returns the callback data of the button with the given label.
func find(t *testing.T, o Outcome, lbl string) string {
	t.Helper()
	if o.Prompt == nil {
		t.Fatalf("no prompt in outcome %+v", o)
	}
	for _, row := range o.Prompt.Keyboard {
		for _, b := range row {
			if b.Label == lbl {
				return b.Action
			}
		}
	}
	t.Fatalf("button %q not found in %+v", lbl, o.Prompt.Keyboard)
	return ""
}

func labels(o Outcome) []string {
	var out []string
	for _, row := range o.Prompt.Keyboard {
		for _, b := range row {
			out = append(out, b.Label)
		}
	}
	return out
}

func dirButtons(o Outcome) int {
	n := 0
	for _, l := range labels(o) {
		if strings.HasPrefix(l, "📁 ") {
			n++
		}
	}
	return n
}

func mustHandle(t *testing.T, nav *Navigator, s *session.Session, data string) Outcome {
	t.Helper()
	o, err := nav.Handle(context.Background(), s, data)
	if err != nil {
		t.Fatalf("Handle(%q): %v", data, err)
	}
	return o
}

func TestPlatformChoice(t *testing.T) {
	lister := &fakeLister{remotes: []string{"gdrive", "photos"}}
	nav, s := newFixture(t, lister)

	o := nav.Begin(s)
	if o.Prompt.Text != TextChoosePlatform {
		t.Errorf("text = %q", o.Prompt.Text)
	}

	o = mustHandle(t, nav, s, find(t, o, "☁️ Rclone"))
	if s.State != session.StateSelectingRemote || s.Platform != session.PlatformRclone {
		t.Fatalf("state = %s, platform = %s", s.State, s.Platform)
	}
	if o.Prompt.Text != TextChooseRemote {
		t.Errorf("text = %q", o.Prompt.Text)
	}
	if got := strings.Join(labels(o), ","); got != "🌐 gdrive,🌐 photos,❌ Cancel Upload" {
		t.Errorf("labels = %s", got)
	}
}

func TestTelegramPlatformStartsTransfer(t *testing.T) {
	nav, s := newFixture(t, &fakeLister{})
	o := mustHandle(t, nav, s, find(t, nav.Begin(s), "📤 Telegram"))

	if !o.Start || s.State != session.StateConfirming || s.Platform != session.PlatformTelegram {
		t.Errorf("outcome = %+v, state = %s", o, s.State)
	}
	if s.Offered() != 0 {
		t.Error("prompt actions still live after confirmation")
	}
}

func TestConfigMissingAndNoRemotes(t *testing.T) {
	tests := []struct {
		name    string
		has     bool
		remotes []string
		text    string
		err     error
	}{
		{"config missing", false, []string{"gdrive"}, TextConfigMissing, ErrConfigMissing},
		{"no remotes", true, nil, TextNoRemotes, ErrNoRemotes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := New(&fakeLister{remotes: tt.remotes}, fakeConfigs{has: tt.has}, nil)
			s, _ := session.NewStore().Open(1, 1, session.StateAwaitingPlatform)

			o := mustHandle(t, nav, s, find(t, nav.Begin(s), "☁️ Rclone"))
			if !o.Closed || !errors.Is(o.Err, tt.err) || o.Prompt.Text != tt.text {
				t.Errorf("outcome = %+v", o)
			}
		})
	}
}

func TestPagination(t *testing.T) {
	lister := &fakeLister{
		remotes: []string{"gdrive"},
		dirs:    map[string][]string{"gdrive:": numbered(23)},
	}
	nav, s := newFixture(t, lister)
	o := mustHandle(t, nav, s, find(t, nav.Begin(s), "☁️ Rclone"))
	o = mustHandle(t, nav, s, find(t, o, "🌐 gdrive"))

	pages := []struct {
		dirs   int
		labels string // pagination row
	}{
		{10, "Page 1/3,Next ▶️"},
		{10, "◀️ Prev,Page 2/3,Next ▶️"},
		{3, "◀️ Prev,Page 3/3"},
	}

	for i, want := range pages {
		if s.Page != i {
			t.Fatalf("page = %d, want %d", s.Page, i)
		}
		if got := dirButtons(o); got != want.dirs {
			t.Errorf("page %d: %d dir buttons, want %d", i, got, want.dirs)
		}

		var row []string
		for _, l := range labels(o) {
			if strings.HasPrefix(l, "Page ") || strings.Contains(l, "Prev") || strings.Contains(l, "Next") {
				row = append(row, l)
			}
		}
		if got := strings.Join(row, ","); got != want.labels {
			t.Errorf("page %d: pagination row %q, want %q", i, got, want.labels)
		}

		if i < len(pages)-1 {
			o = mustHandle(t, nav, s, find(t, o, "Next ▶️"))
		}
	}

	// back to the previous page
	o = mustHandle(t, nav, s, find(t, o, "◀️ Prev"))
	if s.Page != 1 || dirButtons(o) != 10 {
		t.Errorf("after Prev: page %d, %d dirs", s.Page, dirButtons(o))
	}

	// the page label is inert
	before := s.Page
	info := find(t, o, "Page 2/3")
	if o, err := nav.Handle(context.Background(), s, info); err != nil || o.Prompt != nil || s.Page != before {
		t.Errorf("page_info = %+v, %v", o, err)
	}
}

func TestSinglePageHasNoPaginationRow(t *testing.T) {
	lister := &fakeLister{remotes: []string{"gdrive"}, dirs: map[string][]string{"gdrive:": numbered(10)}}
	nav, s := newFixture(t, lister)

	o := nav.Navigate(context.Background(), s, session.Target{Remote: "gdrive"})
	for _, l := range labels(o) {
		if strings.HasPrefix(l, "Page ") {
			t.Errorf("unexpected pagination control %q", l)
		}
	}
	want := []string{"✅ Select This Folder", "🔙 Back to Remotes", "❌ Cancel Upload"}
	got := labels(o)
	if strings.Join(got[len(got)-3:], ",") != strings.Join(want, ",") {
		t.Errorf("controls = %v", got[len(got)-3:])
	}
}

func TestSuffixStripping(t *testing.T) {
	lister := &fakeLister{
		remotes: []string{"gdrive"},
		dirs:    map[string][]string{"gdrive:videos": {"2023", "2024"}},
	}
	nav, s := newFixture(t, lister)

	a := nav.Navigate(context.Background(), s, session.Target{Remote: "gdrive", Path: "videos/movie.mp4"})
	pathA := s.Path
	b := nav.Navigate(context.Background(), s, session.Target{Remote: "gdrive", Path: "videos"})

	if pathA != "videos" {
		t.Errorf("normalized path = %q", pathA)
	}
	if strings.Join(labels(a), ",") != strings.Join(labels(b), ",") {
		t.Errorf("listings differ:\n%v\n%v", labels(a), labels(b))
	}
	if lister.calls[0] != "gdrive:videos" {
		t.Errorf("listed %q", lister.calls[0])
	}
}

func TestDottedDirectoryNames(t *testing.T) {
	lister := &fakeLister{
		remotes: []string{"gdrive"},
		dirs: map[string][]string{
			"gdrive:":                    {"John.Doe", "photos"},
			"gdrive:John.Doe":            {"Season.S01"},
			"gdrive:John.Doe/Season.S01": {"extras"},
		},
	}
	nav, s := newFixture(t, lister)

	o := nav.Navigate(context.Background(), s, session.Target{Remote: "gdrive"})
	o = mustHandle(t, nav, s, find(t, o, "📁 John.Doe"))
	if s.Path != "John.Doe" {
		t.Fatalf("path = %q, want John.Doe", s.Path)
	}
	if !strings.HasPrefix(o.Prompt.Text, "📂 gdrive:John.Doe\n") {
		t.Errorf("text = %q", o.Prompt.Text)
	}

	o = mustHandle(t, nav, s, find(t, o, "📁 Season.S01"))
	if s.Path != "John.Doe/Season.S01" {
		t.Fatalf("path = %q", s.Path)
	}

	o = mustHandle(t, nav, s, find(t, o, "🔙 Back"))
	if s.Path != "John.Doe" {
		t.Errorf("back path = %q, want John.Doe", s.Path)
	}

	o = mustHandle(t, nav, s, find(t, o, "✅ Select This Folder"))
	if !o.Start || s.Path != "John.Doe" {
		t.Errorf("selected %s:%s, start = %v", s.Remote, s.Path, o.Start)
	}

	want := []string{"gdrive:", "gdrive:John.Doe", "gdrive:John.Doe/Season.S01", "gdrive:John.Doe"}
	if strings.Join(lister.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", lister.calls, want)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"/", ""},
		{"videos", "videos"},
		{"/videos/", "videos"},
		{"videos/movie.mp4", "videos"},
		{"a/b/notes.txt", "a/b"},
		{"movie.mkv", ""},
		{"backups/v1.2", "backups/v1.2"},
		{"home/.config", "home/.config"},
		{"media/archive.tar.gz", "media"},
		{"data/my.photos", "data/my.photos"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBackNavigation(t *testing.T) {
	lister := &fakeLister{
		remotes: []string{"gdrive"},
		dirs: map[string][]string{
			"gdrive:":             {"media"},
			"gdrive:media":        {"videos"},
			"gdrive:media/videos": nil,
		},
	}
	nav, s := newFixture(t, lister)
	o := nav.Navigate(context.Background(), s, session.Target{Remote: "gdrive"})
	o = mustHandle(t, nav, s, find(t, o, "📁 media"))
	o = mustHandle(t, nav, s, find(t, o, "📁 videos"))
	if s.Path != "media/videos" {
		t.Fatalf("path = %q", s.Path)
	}

	o = mustHandle(t, nav, s, find(t, o, "🔙 Back"))
	if s.Path != "media" {
		t.Errorf("after Back: %q", s.Path)
	}
	o = mustHandle(t, nav, s, find(t, o, "🔙 Back"))
	if s.Path != "" {
		t.Errorf("after second Back: %q", s.Path)
	}
	o = mustHandle(t, nav, s, find(t, o, "🔙 Back to Remotes"))
	if s.State != session.StateSelectingRemote || o.Prompt.Text != TextChooseRemote {
		t.Errorf("state = %s, text = %q", s.State, o.Prompt.Text)
	}
}

func TestListingFailureShowsEmptyDirectory(t *testing.T) {
	lister := &fakeLister{remotes: []string{"gdrive"}, fail: true}
	nav, s := newFixture(t, lister)

	o := nav.Navigate(context.Background(), s, session.Target{Remote: "gdrive", Path: "missing"})
	if o.Closed || dirButtons(o) != 0 {
		t.Fatalf("outcome = %+v", o)
	}
	find(t, o, "✅ Select This Folder")
	back := find(t, o, "🔙 Back")
	mustHandle(t, nav, s, back)
	if s.Path != "" {
		t.Errorf("Back from failed listing: %q", s.Path)
	}
}

func TestStaleActions(t *testing.T) {
	lister := &fakeLister{remotes: []string{"gdrive"}, dirs: map[string][]string{"gdrive:": {"a", "b"}}}
	nav, s := newFixture(t, lister)

	begin := nav.Begin(s)
	rclone := find(t, begin, "☁️ Rclone")
	o := mustHandle(t, nav, s, rclone)
	o = mustHandle(t, nav, s, find(t, o, "🌐 gdrive"))

	tests := []struct {
		name string
		data string
	}{
		{"old prompt", rclone},
		{"never offered", "nav_gdrive:secret"},
		{"unknown verb", "delete_gdrive:"},
		{"garbage", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, remote, path, offered := s.State, s.Remote, s.Path, s.Offered()
			_, err := nav.Handle(context.Background(), s, tt.data)
			if !errors.Is(err, ErrStaleAction) {
				t.Errorf("err = %v, want ErrStaleAction", err)
			}
			if s.State != state || s.Remote != remote || s.Path != path || s.Offered() != offered {
				t.Error("stale action changed the session")
			}
		})
	}

	if _, err := nav.Handle(context.Background(), nil, "cancel_upload"); !errors.Is(err, ErrSessionMissing) {
		t.Errorf("nil session: %v", err)
	}
}

func TestSelectUsesSessionPath(t *testing.T) {
	deep := "projects/2024/clients/acme-corporation/deliverables/final-renders"
	lister := &fakeLister{
		remotes: []string{"gdrive"},
		dirs:    map[string][]string{"gdrive:" + deep: nil},
	}
	nav, s := newFixture(t, lister)

	o := nav.Navigate(context.Background(), s, session.Target{Remote: "gdrive", Path: deep})
	sel := find(t, o, "✅ Select This Folder")
	if !strings.Contains(sel, "#") {
		t.Errorf("expected a shortened token, got %q", sel)
	}

	o = mustHandle(t, nav, s, sel)
	if !o.Start || s.State != session.StateConfirming {
		t.Fatalf("outcome = %+v, state = %s", o, s.State)
	}
	if s.Remote != "gdrive" || s.Path != deep {
		t.Errorf("destination = %s:%s", s.Remote, s.Path)
	}
}

func TestActionsFitWireLimit(t *testing.T) {
	long := strings.Repeat("very-long-directory-name-", 4)
	lister := &fakeLister{
		remotes: []string{strings.Repeat("remote", 8)},
		dirs:    map[string][]string{},
	}
	remote := lister.remotes[0]
	lister.dirs[remote+":"+long] = []string{long + "1", long + "2"}
	nav, s := newFixture(t, lister)

	o := nav.Navigate(context.Background(), s, session.Target{Remote: remote, Path: long})
	for _, row := range o.Prompt.Keyboard {
		for _, b := range row {
			if len(b.Action) > 64 {
				t.Errorf("%q: %d bytes", b.Action, len(b.Action))
			}
		}
	}
}

func TestCancel(t *testing.T) {
	nav, s := newFixture(t, &fakeLister{})
	o := mustHandle(t, nav, s, find(t, nav.Begin(s), "❌ Cancel Upload"))
	if !o.Closed || o.Prompt.Text != TextCancelled {
		t.Errorf("idle cancel = %+v", o)
	}
}

func TestCancelWhileTransferring(t *testing.T) {
	nav, s := newFixture(t, &fakeLister{})
	s.State = session.StateConfirming
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.BeginTransfer(cancel); err != nil {
		t.Fatal(err)
	}
	s.ResetOffers()
	data := nav.CancelButton(s).Action

	o := mustHandle(t, nav, s, data)
	if o.Closed || o.Notice != TextCancelling {
		t.Errorf("outcome = %+v", o)
	}
	if ctx.Err() == nil {
		t.Error("job context not cancelled")
	}
}

func TestPaginateClampsIndex(t *testing.T) {
	tests := []struct {
		n, index, wantIndex, wantLen, wantCount int
	}{
		{23, 0, 0, 10, 3},
		{23, 2, 2, 3, 3},
		{23, 9, 2, 3, 3},
		{23, -1, 0, 10, 3},
		{0, 0, 0, 0, 0},
		{10, 1, 0, 10, 1},
	}
	for _, tt := range tests {
		p := Paginate(numbered(tt.n), tt.index, 10)
		if p.Index != tt.wantIndex || len(p.Items) != tt.wantLen || p.Count != tt.wantCount {
			t.Errorf("Paginate(%d, %d) = index %d, %d items, %d pages", tt.n, tt.index, p.Index, len(p.Items), p.Count)
		}
	}
}

func TestLabelTruncation(t *testing.T) {
	if got := label("short"); got != "short" {
		t.Errorf("label = %q", got)
	}
	if got := label("a-very-long-folder-name"); got != "a-very-long-fol..." {
		t.Errorf("label = %q", got)
	}
}
