package filestore_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/calvinalkan/doit/internal/filestore"
	"github.com/calvinalkan/doit/internal/fs"
	"github.com/calvinalkan/doit/internal/task"
)

var fixedNow = time.Date(2013, 3, 14, 9, 30, 0, 0, time.FixedZone("", 8*3600))

func clock() time.Time { return fixedNow }

// taskView is the persisted content of a task, without its identity.
type taskView struct {
	Type  task.Type
	Done  bool
	Name  string
	Start int64
	End   int64
	Zone  int
}

func view(t task.Task) taskView {
	v := taskView{Type: t.Type(), Done: t.Done(), Name: t.Name()}

	switch k := t.Kind().(type) {
	case task.Deadline:
		v.Start = k.Due.UnixNano()
		_, v.Zone = k.Due.Zone()
	case task.Timed:
		v.Start, v.End = k.Start.UnixNano(), k.End.UnixNano()
		_, v.Zone = k.Start.Zone()
	}

	return v
}

func views(tasks []task.Task) []taskView {
	out := make([]taskView, len(tasks))
	for i, t := range tasks {
		out[i] = view(t)
	}

	return out
}

func openStore(t *testing.T, path string, opts filestore.Options) *filestore.Store {
	t.Helper()

	if opts.Now == nil {
		opts.Now = clock
	}

	s, err := filestore.Open(path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func newTask(t *testing.T, name string, kind task.Kind, done bool) task.Task {
	t.Helper()

	tk, err := task.New(name, kind, done)
	require.NoError(t, err)

	return tk
}

func Test_Open_Creates_File_With_Starter_Tasks_When_Missing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), filestore.DefaultFileName)
	s := openStore(t, path, filestore.Options{})

	assert.Equal(t, filestore.OK, s.Health())

	got, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 11)

	assert.Equal(t, task.TypeDeadline, got[0].Type())
	assert.True(t, strings.HasPrefix(got[0].Name(), "Welcome to DoIt!"))
	assert.Equal(t, task.TypeFloating, got[len(got)-1].Type())

	done := 0
	for _, tk := range got {
		if tk.Done() {
			done++
		}
	}

	assert.Equal(t, 2, done, "two starter tasks are pre-completed")
}

func Test_Open_Creates_Empty_File_When_NoStarter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.txt")
	s := openStore(t, path, filestore.Options{NoStarter: true})

	got, err := s.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Ref| Type | Done |")
	assert.Contains(t, string(data), "#Last Modified: Thu 14-Mar-2013 09:30AM +0800")
}

func Test_Open_Does_Not_Seed_Existing_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.txt")
	require.NoError(t, os.WriteFile(path, []byte("# nothing here\n"), 0o644))

	s := openStore(t, path, filestore.Options{})

	got, err := s.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func Test_Open_Rejects_Empty_Path(t *testing.T) {
	t.Parallel()

	_, err := filestore.Open("", filestore.Options{})
	require.Error(t, err)
}

func Test_WriteAll_Then_ReadAll_Round_Trips(t *testing.T) {
	t.Parallel()

	s := openStore(t, filepath.Join(t.TempDir(), "db.txt"), filestore.Options{NoStarter: true})

	rapid.Check(t, func(rt *rapid.T) {
		want := rapid.SliceOfN(rapid.Custom(genTask), 0, 15).Draw(rt, "tasks")

		if err := s.WriteAll(want); err != nil {
			rt.Fatalf("WriteAll: %v", err)
		}

		got, err := s.ReadAll()
		if err != nil {
			rt.Fatalf("ReadAll: %v", err)
		}

		if diff := cmp.Diff(views(want), views(got)); diff != "" {
			rt.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}

		if s.Health() != filestore.OK {
			rt.Fatalf("Health()=%v after round trip, want ok", s.Health())
		}
	})
}

func genTask(t *rapid.T) task.Task {
	zone := time.FixedZone("", rapid.IntRange(-48, 56).Draw(t, "zone")*15*60)
	base := time.Date(2010, 1, 1, 0, 0, 0, 0, zone)
	at := func(label string) time.Time {
		minutes := time.Duration(rapid.IntRange(0, 5_000_000).Draw(t, label)) * time.Minute
		sub := time.Duration(rapid.Int64Range(0, int64(time.Minute)-1).Draw(t, label+"_sub"))

		return base.Add(minutes + sub)
	}

	name := rapid.StringMatching(`[a-zA-Z0-9"][a-zA-Z0-9 .,!?"|#*-]{0,30}`).Draw(t, "name")
	done := rapid.Bool().Draw(t, "done")

	var kind task.Kind

	switch rapid.IntRange(0, 2).Draw(t, "kind") {
	case 0:
		kind = task.Floating{}
	case 1:
		kind = task.Deadline{Due: at("due")}
	default:
		a, b := at("start"), at("end")
		if b.Before(a) {
			a, b = b, a
		}

		kind = task.Timed{Start: a, End: b}
	}

	tk, err := task.New(name, kind, done)
	if err != nil {
		t.Fatalf("task.New(%q): %v", name, err)
	}

	return tk
}

func Test_WriteAll_Empty_List_Reads_Back_Empty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.txt")
	s := openStore(t, path, filestore.Options{})

	require.NoError(t, s.WriteAll(nil))

	got, err := s.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, filestore.OK, s.Health())
}

func Test_Corrupt_File_Is_Sticky_And_Never_Overwritten(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.txt")
	content := "# header\n" +
		"  1 | F | - | ---------------------- | ---------------------- | fine\n" +
		"  2 | X | - | ---------------------- | ---------------------- | bad type\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := openStore(t, path, filestore.Options{})
	require.Equal(t, filestore.OK, s.Health())

	got, err := s.ReadAll()
	require.Error(t, err)
	assert.Empty(t, got)
	assert.True(t, errors.Is(err, filestore.ErrCorrupt))

	var ce *filestore.CorruptError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 3, ce.Line)
	assert.Equal(t, filestore.Corrupt, s.Health())

	fine := newTask(t, "replacement", task.Floating{}, false)
	err = s.WriteAll([]task.Task{fine})
	assert.True(t, errors.Is(err, filestore.ErrCorrupt), "err=%v, want ErrCorrupt", err)

	got, err = s.ReadAll()
	assert.NoError(t, err, "a corrupt store is no longer readable and reports nothing")
	assert.Empty(t, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data), "corrupt file must be left byte-identical")
}

func Test_ReadAll_Rejects_Malformed_Lines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "  1 | F | - | ---------------------- | name"},
		{"unknown type", "  1 | Q | - | ---------------------- | ---------------------- | name"},
		{"unknown done marker", "  1 | F | x | ---------------------- | ---------------------- | name"},
		{"empty name", "  1 | F | - | ---------------------- | ---------------------- | "},
		{"blank name", "  1 | F | - | ---------------------- | ---------------------- |    "},
		{"malformed date", "  1 | D | - | 2012-01-01 06:00 | ---------------------- | name"},
		{"placeholder deadline", "  1 | D | - | ---------------------- | ---------------------- | name"},
		{"placeholder timed end", "  1 | T | - | 01-Jan-2012 0600 +0800 | ---------------------- | name"},
		{"start after end", "  1 | T | - | 02-Jan-2012 0600 +0800 | 01-Jan-2012 0600 +0800 | name"},
		{"wrong delimiter", "  1 ; F ; - ; ---------------------- ; ---------------------- ; name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "db.txt")
			require.NoError(t, os.WriteFile(path, []byte(tt.line+"\n"), 0o644))

			s := openStore(t, path, filestore.Options{})

			got, err := s.ReadAll()
			assert.True(t, errors.Is(err, filestore.ErrCorrupt), "err=%v, want ErrCorrupt", err)
			assert.Empty(t, got)
			assert.Equal(t, filestore.Corrupt, s.Health())
		})
	}
}

func Test_ReadAll_Ignores_Index_Column_And_Comments(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.txt")
	content := "#comment\r\n" +
		"999 | D | * | 01-Jan-2012 0600 +0800 | ---------------------- | first\r\n" +
		"\n" +
		"abc | T | - | 31-Dec-2012 2359 +0800 | 28-Feb-2013 2248 +0800 | second | with pipe\n" +
		"  7 | F | - | garbage is ignored here | ---------------------- | third\n" +
		"#Last Modified: whenever\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s := openStore(t, path, filestore.Options{})

	got, err := s.ReadAll()
	require.NoError(t, err)

	names := make([]string, len(got))
	for i, tk := range got {
		names[i] = tk.Name()
	}

	assert.Equal(t, []string{"first", "second | with pipe", "third"}, names)
	assert.True(t, got[0].Done())

	due, ok := got[0].Due()
	require.True(t, ok)
	assert.True(t, due.Equal(time.Date(2011, 12, 31, 22, 0, 0, 0, time.UTC)), "due=%v", due)
}

func Test_EncodeLine_Matches_File_Format(t *testing.T) {
	t.Parallel()

	zone := time.FixedZone("", 8*3600)
	due := newTask(t, "A done deadline task", task.Deadline{Due: time.Date(2012, 1, 1, 6, 0, 0, 0, zone)}, true)
	timed := newTask(t, "trip", task.Timed{
		Start: time.Date(2012, 12, 31, 23, 59, 0, 0, zone),
		End:   time.Date(2013, 2, 28, 22, 48, 0, 0, zone),
	}, false)
	floating := newTask(t, "floating", task.Floating{}, true)

	assert.Equal(t, "  1 | D | * | 01-Jan-2012 0600 +0800 | ---------------------- | A done deadline task",
		filestore.EncodeLine(1, due))
	assert.Equal(t, " 12 | T | - | 31-Dec-2012 2359 +0800 | 28-Feb-2013 2248 +0800 | trip",
		filestore.EncodeLine(12, timed))
	assert.Equal(t, "100 | F | * | ---------------------- | ---------------------- | floating",
		filestore.EncodeLine(100, floating))
}

func Test_Second_Open_Reports_Locked(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.txt")

	first := openStore(t, path, filestore.Options{NoStarter: true})
	require.Equal(t, filestore.OK, first.Health())

	second := openStore(t, path, filestore.Options{})
	assert.Equal(t, filestore.Locked, second.Health())

	got, err := second.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, got)

	err = second.WriteAll(nil)
	assert.True(t, errors.Is(err, filestore.ErrLocked), "err=%v, want ErrLocked", err)

	require.NoError(t, first.Close())

	third := openStore(t, path, filestore.Options{})
	assert.Equal(t, filestore.OK, third.Health())
}

func Test_Open_Falls_Back_To_ReadOnly_When_File_Is_Not_Writable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.txt")
	seed := filestore.Encode([]task.Task{newTask(t, "read me", task.Floating{}, false)}, fixedNow)
	require.NoError(t, os.WriteFile(path, seed, 0o644))

	chaos := fs.NewChaos(fs.NewReal(), 1, fs.ChaosConfig{})
	chaos.SetMode(fs.ChaosModeStickyOnly)
	chaos.SetPathState(path, fs.PathReadOnly)

	s := openStore(t, path, filestore.Options{FS: chaos})
	require.Equal(t, filestore.ReadOnly, s.Health())

	got, err := s.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "read me", got[0].Name())

	err = s.WriteAll(nil)
	assert.True(t, errors.Is(err, filestore.ErrReadOnly), "err=%v, want ErrReadOnly", err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, seed, data)

	other := openStore(t, path, filestore.Options{})
	assert.Equal(t, filestore.OK, other.Health(), "a read-only store must not hold the lock")
}

func Test_Open_Reports_PermissionsUnknown_When_File_Cannot_Be_Opened(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.txt")
	require.NoError(t, os.WriteFile(path, []byte("# x\n"), 0o644))

	chaos := fs.NewChaos(fs.NewReal(), 1, fs.ChaosConfig{})
	chaos.SetMode(fs.ChaosModeStickyOnly)
	chaos.SetPathState(path, fs.PathNoPermission)

	s := openStore(t, path, filestore.Options{FS: chaos})
	assert.Equal(t, filestore.PermissionsUnknown, s.Health())

	got, err := s.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, got)

	err = s.WriteAll(nil)
	assert.True(t, errors.Is(err, filestore.ErrPermissionsUnknown), "err=%v", err)
}

func Test_WriteAll_Failure_Leaves_Previous_Content(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.txt")
	chaos := fs.NewChaos(fs.NewReal(), 1, fs.ChaosConfig{WriteFailRate: 1})

	s := openStore(t, path, filestore.Options{FS: chaos, NoStarter: true})
	require.NoError(t, s.WriteAll([]task.Task{newTask(t, "kept", task.Floating{}, false)}))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	chaos.SetMode(fs.ChaosModeInject)

	err = s.WriteAll([]task.Task{newTask(t, "lost", task.Floating{}, false)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, filestore.ErrDurableWrite), "err=%v, want ErrDurableWrite", err)
	assert.True(t, fs.IsInjected(err), "err=%v, want the injected failure wrapped", err)
	assert.Equal(t, filestore.OK, s.Health(), "a failed write does not change health")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func Test_ReadAll_Marks_Corrupt_When_File_Cannot_Be_Read(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.txt")
	chaos := fs.NewChaos(fs.NewReal(), 1, fs.ChaosConfig{ReadFailRate: 1})

	s := openStore(t, path, filestore.Options{FS: chaos, NoStarter: true})
	chaos.SetMode(fs.ChaosModeInject)

	_, err := s.ReadAll()
	assert.True(t, errors.Is(err, filestore.ErrCorrupt), "err=%v", err)
	assert.Equal(t, filestore.Corrupt, s.Health())
}

func Test_Close_Is_Idempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "db.txt")

	s, err := filestore.Open(path, filestore.Options{NoStarter: true})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.WriteAll(nil)
	assert.True(t, errors.Is(err, filestore.ErrClosed), "err=%v", err)

	var nilStore *filestore.Store
	assert.NoError(t, nilStore.Close())
}

func Test_StarterTasks_Are_Relative_To_Now(t *testing.T) {
	t.Parallel()

	got := filestore.StarterTasks(fixedNow)
	require.Len(t, got, 11)

	wantFirst := taskView{
		Type:  task.TypeDeadline,
		Name:  `Welcome to DoIt! Type "help" in the box below to see a list of possible commands.`,
		Start: fixedNow.UnixNano(),
		Zone:  8 * 3600,
	}

	if diff := cmp.Diff(wantFirst, view(got[0])); diff != "" {
		t.Fatalf("first starter task (-want +got):\n%s", diff)
	}

	assert.True(t, slicesSorted(got), "starter tasks must be sorted")
}

func slicesSorted(tasks []task.Task) bool {
	for i := 1; i < len(tasks); i++ {
		if task.Compare(tasks[i-1], tasks[i]) > 0 {
			return false
		}
	}

	return true
}
