package sensor

import (
	"bufio"
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// DefaultBaseDir is where the w1-gpio driver exposes its slaves.
const DefaultBaseDir = "/sys/bus/w1/devices"

const (
	ds18b20Family = "28-"
	slaveFile     = "w1_slave"

	// a DS18B20 reports 85.000 after a power-on reset before the first conversion
	powerOnResetMilli = 85000
	// an 85.000 within this distance of the last accepted value is a real temperature
	powerOnJumpMilli  = 5000
	minPlausibleMilli = -55000
	maxPlausibleMilli = 125000
)

// probeHistory is what the reader remembers about a probe between reads.
type probeHistory struct {
	lastMilli int
	accepted  bool
	reset     bool // previous raw value was the power-on value
}

// W1Reader reads DS18B20 probes through the 1-wire sysfs interface.
type W1Reader struct {
	fs      afero.Fs
	baseDir string
	cal     Calibration

	mu      sync.Mutex
	history map[string]probeHistory
}

// NewW1Reader builds a reader on fs rooted at baseDir (DefaultBaseDir when empty).
func NewW1Reader(fs afero.Fs, baseDir string, cal Calibration) *W1Reader {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if cal == nil {
		cal = Calibration{}
	}
	return &W1Reader{fs: fs, baseDir: baseDir, cal: cal, history: map[string]probeHistory{}}
}

// Discover lists the ids of attached DS18B20 probes, sorted.
func (r *W1Reader) Discover() ([]string, error) {
	entries, err := afero.ReadDir(r.fs, r.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.baseDir, err)
	}
	var ids []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ds18b20Family) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Read parses the probe's w1_slave file.
// The sysfs read itself is not interruptible, so ctx is only checked up front.
func (r *W1Reader) Read(ctx context.Context, sensorID string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p := path.Join(r.baseDir, sensorID, slaveFile)
	f, err := r.fs.Open(p)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrNotFound, sensorID, err)
	}
	defer f.Close()

	milli, err := parseSlave(bufio.NewScanner(f))
	if err == nil {
		err = r.screen(sensorID, milli)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", sensorID, err)
	}
	return r.cal.Apply(sensorID, float64(milli)/1000), nil
}

// screen rejects a lone power-on value. 85.000 is accepted when it follows
// an accepted reading close to it, or when the probe reports it twice in a row.
func (r *W1Reader) screen(sensorID string, milli int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.history[sensorID]
	if milli == powerOnResetMilli {
		near := h.accepted && abs(h.lastMilli-milli) <= powerOnJumpMilli
		if !near && !h.reset {
			h.reset = true
			r.history[sensorID] = h
			return fmt.Errorf("%w: power-on value %d", ErrImplausible, milli)
		}
	}
	r.history[sensorID] = probeHistory{lastMilli: milli, accepted: true}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// parseSlave reads the two-line w1_slave format:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func parseSlave(sc *bufio.Scanner) (int, error) {
	if !sc.Scan() {
		return 0, fmt.Errorf("%w: empty", ErrMalformed)
	}
	if !strings.HasSuffix(strings.TrimSpace(sc.Text()), "YES") {
		return 0, ErrCRC
	}
	if !sc.Scan() {
		return 0, fmt.Errorf("%w: missing value line", ErrMalformed)
	}
	line := sc.Text()
	i := strings.LastIndex(line, "t=")
	if i < 0 {
		return 0, fmt.Errorf("%w: no t= field", ErrMalformed)
	}
	milli, err := strconv.Atoi(strings.TrimSpace(line[i+2:]))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if milli < minPlausibleMilli || milli > maxPlausibleMilli {
		return 0, fmt.Errorf("%w: %d", ErrImplausible, milli)
	}
	return milli, nil
}
