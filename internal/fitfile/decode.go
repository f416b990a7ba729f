// Package fitfile turns Garmin FIT activity files into store rows and
// watches a directory for new ones.
package fitfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tormoder/fit"

	"runlytics/internal/store"
)

// ErrNoSession is returned for FIT files without a session summary
var ErrNoSession = errors.New("fit file has no session")

// invalidUint8 marks a missing one-byte FIT field
const invalidUint8 = 0xFF

// maxUTCOffset bounds a plausible local time offset
const maxUTCOffset = 14 * time.Hour

// DecodeFile reads and decodes the FIT file at path
func DecodeFile(path string) (*store.Activity, []store.Lap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(bytes.NewReader(data))
}

// Decode parses one FIT activity. Only the first session is used; laps
// keep file order.
func Decode(r io.Reader) (*store.Activity, []store.Lap, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding fit: %w", err)
	}
	af, err := decoded.Activity()
	if err != nil {
		return nil, nil, fmt.Errorf("reading activity: %w", err)
	}
	return fromActivityFile(af)
}

func fromActivityFile(af *fit.ActivityFile) (*store.Activity, []store.Lap, error) {
	if af == nil || len(af.Sessions) == 0 {
		return nil, nil, ErrNoSession
	}
	s := af.Sessions[0]

	start := s.StartTime.UTC()
	timer := scaled(s.GetTotalTimerTimeScaled())
	elapsed := scaled(s.GetTotalElapsedTimeScaled())
	if elapsed == 0 {
		elapsed = timer
	}

	a := &store.Activity{
		Source:           store.SourceFIT,
		ExternalID:       start.Format(time.RFC3339),
		Name:             activityName(s.Sport, start),
		Type:             activityType(s.Sport),
		StartDate:        start,
		StartDateLocal:   localStart(af, start),
		Distance:         scaled(s.GetTotalDistanceScaled()),
		MovingTime:       int(math.Round(timer)),
		ElapsedTime:      int(math.Round(elapsed)),
		AverageHeartrate: heartRate(s.AvgHeartRate),
		MaxHeartrate:     heartRate(s.MaxHeartRate),
		AverageCadence:   cadence(s.AvgCadence),
	}

	laps := make([]store.Lap, 0, len(af.Laps))
	for i, l := range af.Laps {
		if l == nil {
			continue
		}
		laps = append(laps, store.Lap{
			LapIndex:         i,
			Distance:         scaled(l.GetTotalDistanceScaled()),
			MovingTime:       scaled(l.GetTotalTimerTimeScaled()),
			AverageHeartrate: heartRate(l.AvgHeartRate),
			AverageCadence:   cadence(l.AvgCadence),
		})
	}

	return a, laps, nil
}

// localStart applies the activity's local timestamp offset when the file
// carries one.
func localStart(af *fit.ActivityFile, start time.Time) time.Time {
	if af.Activity == nil || af.Activity.LocalTimestamp.IsZero() || af.Activity.Timestamp.IsZero() {
		return start
	}
	offset := af.Activity.LocalTimestamp.Sub(af.Activity.Timestamp)
	if offset > maxUTCOffset || offset < -maxUTCOffset {
		return start
	}
	return start.Add(offset)
}

func activityType(sport fit.Sport) string {
	if sport == fit.SportRunning {
		return "Run"
	}
	return strings.TrimPrefix(sport.String(), "Sport")
}

func activityName(sport fit.Sport, start time.Time) string {
	return fmt.Sprintf("%s %s", activityType(sport), start.Format("2006-01-02 15:04"))
}

// scaled turns the decoder's NaN for missing fields into zero
func scaled(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func heartRate(v uint8) *float64 {
	if v == 0 || v == invalidUint8 {
		return nil
	}
	hr := float64(v)
	return &hr
}

// cadence converts the per-leg running cadence FIT stores to steps per minute
func cadence(v uint8) *float64 {
	if v == 0 || v == invalidUint8 {
		return nil
	}
	spm := float64(v) * 2
	return &spm
}

// Collect returns every FIT file under root in lexical order. root may
// also be a single file.
func Collect(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsFITFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}
