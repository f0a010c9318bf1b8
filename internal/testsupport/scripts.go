package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteScript writes an executable #!/bin/sh script named name into dir and
// returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

// FFmpegScript answers encoder probes with listing and, for encode calls,
// appends one line to countFile and writes a few bytes to the last argument.
func FFmpegScript(countFile, listing string) string {
	return fmt.Sprintf(`for a in "$@"; do
  if [ "$a" = "-encoders" ]; then
    printf '%%s\n' '%s'
    exit 0
  fi
done
for a in "$@"; do last="$a"; done
echo encode >> '%s'
printf 'optimized' > "$last"
`, strings.ReplaceAll(listing, "'", ""), countFile)
}

// FailingFFmpegScript prints msg on stderr and exits 1 for encodes.
func FailingFFmpegScript(msg string) string {
	return fmt.Sprintf(`for a in "$@"; do
  if [ "$a" = "-encoders" ]; then exit 0; fi
done
echo '%s' >&2
exit 1
`, strings.ReplaceAll(msg, "'", ""))
}

// MpvpaperScript stays alive until signalled. Its command line keeps the
// player name, monitor and file visible to process sweeps.
func MpvpaperScript() string {
	return "while :; do sleep 0.1; done\n"
}

// HyprctlScript prints monitorsJSON for `hyprctl monitors -j`.
func HyprctlScript(monitorsJSON string) string {
	return "cat <<'JSON'\n" + monitorsJSON + "\nJSON\n"
}
