package tests

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestFunctional runs world files through the compiled binary and compares
// output with .want files. This tests the actual binary - what users see.
func TestFunctional(t *testing.T) {
	// Get project root (parent of tests/)
	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("Failed to get project root: %v", err)
	}

	binaryPath := filepath.Join(projectRoot, "sablecheck-test-binary")
	defer os.Remove(binaryPath)

	// Always build fresh binary
	t.Log("Building fresh binary...")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/sablecheck")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, output)
	}

	// Find all world files with .want files
	var testFiles []string
	err = filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") {
			wantFile := strings.TrimSuffix(path, ".yaml") + ".want"
			if _, err := os.Stat(wantFile); err == nil {
				testFiles = append(testFiles, path)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk directory: %v", err)
	}

	if len(testFiles) == 0 {
		t.Skip("No test files with .want found")
	}

	for _, testFile := range testFiles {
		testFile := testFile
		testName := strings.TrimSuffix(filepath.Base(testFile), ".yaml")

		t.Run(testName, func(t *testing.T) {
			// Get absolute path for the world file
			absPath, err := filepath.Abs(testFile)
			if err != nil {
				t.Fatalf("Failed to get absolute path: %v", err)
			}

			// Read expected output
			wantFile := strings.TrimSuffix(testFile, ".yaml") + ".want"
			wantBytes, err := os.ReadFile(wantFile)
			if err != nil {
				t.Fatalf("Failed to read .want file: %v", err)
			}
			want := strings.TrimSpace(string(wantBytes))

			// Run binary from project root; stdout is piped so color
			// never switches on.
			cmd := exec.Command(binaryPath, absPath)
			cmd.Dir = projectRoot
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			// A world with errors exits nonzero on purpose; the output
			// is what we compare.
			_ = cmd.Run()

			stdoutStr := strings.TrimSpace(stdout.String())
			stderrStr := strings.TrimSpace(stderr.String())

			// Normalize absolute world paths in errors to be relative
			// to the project root.
			if stderrStr != "" {
				stderrStr = strings.ReplaceAll(stderrStr, projectRoot+"/", "")
			}

			// Combine: stdout first, then stderr
			var got string
			if stdoutStr != "" && stderrStr != "" {
				got = stdoutStr + "\n" + stderrStr
			} else if stdoutStr != "" {
				got = stdoutStr
			} else {
				got = stderrStr
			}

			// Normalize line endings and trim spaces
			got = strings.TrimSpace(strings.ReplaceAll(got, "\r\n", "\n"))
			want = strings.TrimSpace(strings.ReplaceAll(want, "\r\n", "\n"))

			if got != want {
				t.Errorf("Output mismatch\nFile: %s\n--- Got ---\n%s\n--- Want ---\n%s", testFile, got, want)
			}
		})
	}
}
