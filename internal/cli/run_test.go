package cli_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calvinalkan/doit/internal/cli"
)

func Test_Main_Help_When_No_Command(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run()

	if got, want := exitCode, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if stderr != "" {
		t.Errorf("stderr=%q, want empty", stderr)
	}

	cli.AssertContains(t, stdout, "Usage: doit")
	cli.AssertContains(t, stdout, "Global flags:")
	cli.AssertContains(t, stdout, "--file")
	cli.AssertContains(t, stdout, "add <name>")
	cli.AssertContains(t, stdout, "print-config")

	if _, err := os.Stat(c.DBPath()); !os.IsNotExist(err) {
		t.Errorf("help created the database: err=%v", err)
	}
}

func Test_Invalid_Global_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("--invalid-flag", "ls")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, ""; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "unknown flag")
	cli.AssertContains(t, stderr, "--invalid-flag")
	cli.AssertContains(t, stderr, "Global flags:")
}

func Test_Empty_File_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("--file=", "ls")

	cli.AssertContains(t, stderr, "file cannot be empty")
}

func Test_Unknown_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("frobnicate")

	cli.AssertContains(t, stderr, "unknown command: frobnicate")
	cli.AssertContains(t, stderr, "Commands:")
}

func Test_Command_Help_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("add", "--help")

	cli.AssertContains(t, stdout, "Usage: doit add <name> [flags]")
	cli.AssertContains(t, stdout, "--due")
	cli.AssertContains(t, stdout, "--from")
}

func Test_Invalid_Command_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewEmptyCLI(t)
	stdout, stderr, exitCode := c.Run("ls", "--bogus")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	cli.AssertContains(t, stderr, "unknown flag: --bogus")
	cli.AssertContains(t, stdout, "Usage: doit ls")
}

func Test_First_Run_Seeds_Welcome_Tasks(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("ls")

	lines := strings.Split(stdout, "\n")
	if got, want := len(lines), 11; got != want {
		t.Fatalf("lines=%d, want=%d\n%s", got, want, stdout)
	}

	cli.AssertContains(t, lines[0], "Welcome to DoIt!")
	cli.AssertContains(t, stdout, "[x] floating")
	cli.AssertContains(t, c.ReadDB(), "#Last Modified:")
}

func Test_File_Flag_And_Env_Select_Database(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("--file", "flag.txt", "add", "from flag")

	c.Env["DOIT_FILE"] = "env.txt"
	c.MustRun("add", "from env")

	flagDB, err := os.ReadFile(filepath.Join(c.Dir, "flag.txt"))
	if err != nil {
		t.Fatalf("read flag.txt: %v", err)
	}

	envDB, err := os.ReadFile(filepath.Join(c.Dir, "env.txt"))
	if err != nil {
		t.Fatalf("read env.txt: %v", err)
	}

	cli.AssertContains(t, string(flagDB), "| from flag")
	cli.AssertContains(t, string(envDB), "| from env")
	cli.AssertNotContains(t, string(envDB), "from flag")
}

func Test_Config_File_Sets_Database_And_Log(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	err := os.WriteFile(filepath.Join(c.Dir, ".doit.json"), []byte(`{
		// project settings
		"file": "tasks.txt",
		"log_file": "doit.log",
		"log_level": "debug",
	}`), 0o600)
	if err != nil {
		t.Fatal(err)
	}

	c.MustRun("add", "configured")

	db, err := os.ReadFile(filepath.Join(c.Dir, "tasks.txt"))
	if err != nil {
		t.Fatalf("read tasks.txt: %v", err)
	}

	cli.AssertContains(t, string(db), "| configured")

	logData, err := os.ReadFile(filepath.Join(c.Dir, "doit.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	cli.AssertContains(t, string(logData), "addition of task")

	stdout := c.MustRun("print-config")
	cli.AssertContains(t, stdout, "file="+filepath.Join(c.Dir, "tasks.txt"))
	cli.AssertContains(t, stdout, "project_config="+filepath.Join(c.Dir, ".doit.json"))
}

func Test_Invalid_Config_Fails(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	err := os.WriteFile(filepath.Join(c.Dir, ".doit.json"), []byte(`{"undo_depth": -3}`), 0o600)
	if err != nil {
		t.Fatal(err)
	}

	stderr := c.MustFail("ls")
	cli.AssertContains(t, stderr, "undo_depth cannot be negative")
}
