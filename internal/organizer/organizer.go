package organizer

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/afero"
)

// Trade file names carry their business date in one of two layouts:
// bhavcopy-style names embed YYYYMMDD after the trading-member id, order
// logs embed DDMMYYYY after the ORD_LOG marker.
var (
	tradeDatePattern  = regexp.MustCompile(`Trade_NSE_\w+_\d+_TM_\d+_(\d{8})_`)
	orderLogPattern   = regexp.MustCompile(`_ORD_LOG_(\d{8})_`)
	eightDigitPattern = regexp.MustCompile(`(\d{8})`)
)

var monthAbbrev = map[time.Month]string{
	time.January:   "Jan",
	time.February:  "Feb",
	time.March:     "Mar",
	time.April:     "Apr",
	time.May:       "May",
	time.June:      "Jun",
	time.July:      "Jul",
	time.August:    "Aug",
	time.September: "Sep",
	time.October:   "Oct",
	time.November:  "Nov",
	time.December:  "Dec",
}

// Organizer lays downloaded files out under a fixed date tree:
// {root}/{segment}/{year}/{month}/{day}. The filesystem is injected so
// tests run against an in-memory fs.
type Organizer struct {
	fs   afero.Fs
	root string
	now  func() time.Time
}

func New(fs afero.Fs, root string) *Organizer {
	return &Organizer{fs: fs, root: root, now: time.Now}
}

// FileDate extracts the business date embedded in the file name. Files
// with no recognizable date land in today's folder.
func (o *Organizer) FileDate(filename string) time.Time {
	if m := tradeDatePattern.FindStringSubmatch(filename); m != nil {
		if t, err := time.Parse("20060102", m[1]); err == nil {
			return t
		}
	}
	if m := orderLogPattern.FindStringSubmatch(filename); m != nil {
		if t, err := time.Parse("02012006", m[1]); err == nil {
			return t
		}
	}
	slog.Debug("No date in filename, using current date", "filename", filename)
	return o.now()
}

// TargetDir resolves and creates the destination directory for a file.
func (o *Organizer) TargetDir(segment, filename string) (string, error) {
	date := o.FileDate(filename)
	dir := filepath.Join(
		o.root,
		segment,
		fmt.Sprintf("%d", date.Year()),
		monthAbbrev[date.Month()],
		fmt.Sprintf("%02d", date.Day()),
	)
	if err := o.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create target directory %s: %w", dir, err)
	}
	return dir, nil
}

// DownloadDate derives the date query parameter for the download endpoint
// from the first 8-digit run in the file name. The remote expects
// DD-MM-YYYY. A run whose leading pairs look like a valid day and month is
// taken as already day-first; otherwise a year-first run is reversed.
func DownloadDate(filename string) string {
	m := eightDigitPattern.FindStringSubmatch(filename)
	if m == nil {
		return ""
	}
	digits := m[1]

	day, month := digits[0:2], digits[2:4]
	if atoi2(day) <= 31 && atoi2(month) <= 12 {
		return day + "-" + month + "-" + digits[4:8]
	}
	if atoi4(digits[0:4]) >= 2000 {
		return digits[6:8] + "-" + digits[4:6] + "-" + digits[0:4]
	}
	return ""
}

func atoi2(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}

func atoi4(s string) int {
	n := 0
	for i := 0; i < 4; i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}
