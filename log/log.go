package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kjk/roster/journal"

	"github.com/toon-format/toon-go"
)

var (
	logFile    *dailyFile
	errorsFile *dailyFile
	eventsFile *dailyFile

	// if true, Verbosef() will log messages
	Verbose bool

	// where Logf() prints, in addition to log files
	Out io.Writer = os.Stdout

	onLog func(s string)
)

// dailyFile appends to ${dir}/${YYYY-MM-DD}.txt, switching to a new file
// when the UTC date changes. Methods are no-ops on nil receiver.
type dailyFile struct {
	dir string

	mu  sync.Mutex
	day string
	f   *os.File
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func (d *dailyFile) write(p []byte) error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	day := today()
	if d.f != nil && d.day != day {
		_ = d.f.Close()
		d.f = nil
	}
	if d.f == nil {
		if err := os.MkdirAll(d.dir, 0755); err != nil {
			return err
		}
		path := filepath.Join(d.dir, day+".txt")
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		d.f = f
		d.day = day
	}
	_, err := d.f.Write(p)
	return err
}

func (d *dailyFile) close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

type Config struct {
	// each kind of log (log, errors, events) goes to its own subdirectory
	// of Dir. No files are written if Dir is empty.
	Dir string
	// called for every Logf() call
	OnLog func(s string)
}

// Init sets up logging. It can be called again after Close.
func Init(config *Config) {
	Close()
	onLog = config.OnLog
	if config.Dir == "" {
		return
	}
	logFile = &dailyFile{dir: filepath.Join(config.Dir, "log")}
	errorsFile = &dailyFile{dir: filepath.Join(config.Dir, "errors")}
	eventsFile = &dailyFile{dir: filepath.Join(config.Dir, "events")}
}

// Close closes log files. Logf still prints to Out after Close.
func Close() {
	for _, d := range []**dailyFile{&logFile, &errorsFile, &eventsFile} {
		_ = (*d).close()
		*d = nil
	}
	onLog = nil
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	fmt.Fprint(Out, s)
	_ = logFile.write([]byte(s))
	if onLog != nil {
		onLog(s)
	}
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

func GetCallstack(skip int) string {
	var callers [32]uintptr
	n := runtime.Callers(skip+2, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var cs []string
	for {
		frame, more := frames.Next()
		cs = append(cs, frame.File+":"+strconv.Itoa(frame.Line))
		if !more {
			break
		}
	}
	return strings.Join(cs, "\n")
}

// Errorf logs an error message along with the callstack
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	cs := GetCallstack(1)
	s = fmt.Sprintf("%s\n%s\n", s, cs)
	_ = errorsFile.write([]byte(s))
	Logf("%s", s)
}

// if err != nil, log and return true
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprintf("%v", a[0])
	}
	Errorf(s, a[1:]...)
	return true
}

// simpleTypeToStr converts simple types to string
// panics if v is of complex type
func simpleTypeToStr(v any) string {
	kind := reflect.TypeOf(v).Kind()
	switch kind {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer:
		panic(fmt.Sprintf("toStr: value is of kind %v", kind))
	case reflect.String:
		return v.(string)
	}
	return fmt.Sprintf("%v", v)
}

// MarshalEvent encodes key/value pairs in toon format and frames
// them as a journal line
func MarshalEvent(name string, t time.Time, vals ...any) ([]byte, error) {
	n := len(vals)
	if n%2 != 0 {
		return nil, fmt.Errorf("odd number of values: %d", n)
	}
	var d []byte
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			m[simpleTypeToStr(vals[i])] = vals[i+1]
		}
		var err error
		if d, err = toon.Marshal(m); err != nil {
			return nil, err
		}
	}
	return journal.MarshalLine(name, t, d, nil), nil
}

// Event logs an event to the events log
func Event(name string, vals ...any) {
	d, err := MarshalEvent(name, time.Now().UTC(), vals...)
	if err != nil {
		Errorf("Event('%s'): %s", name, err)
		return
	}
	_ = eventsFile.write(d)
}

func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}
