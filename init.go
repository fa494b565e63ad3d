package sasl

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// SASL log priorities as passed to LogCallback.
const (
	LogNone  = 0
	LogErr   = 1
	LogFail  = 2
	LogWarn  = 3
	LogNote  = 4
	LogDebug = 5
	LogTrace = 6
	LogPass  = 7
)

// LogFunc is the logging callback handed to the mechanism library.
type LogFunc func(priority int, message string)

// InitFunc initializes the mechanism library once per process.
type InitFunc func(log LogFunc) error

var (
	initMu   sync.Mutex
	initOnce sync.Once
	initFn   InitFunc
	initErr  error
	initDone bool
)

// SetLibraryInit registers the function EnsureInitialized runs. It must be
// called before the first EnsureInitialized.
func SetLibraryInit(fn InitFunc) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initDone {
		return ErrAlreadyInitialized
	}
	initFn = fn
	return nil
}

// EnsureInitialized initializes the mechanism library on first use. Later
// calls return the result of the first one.
func EnsureInitialized() error {
	initOnce.Do(func() {
		initMu.Lock()
		fn := initFn
		initDone = true
		initMu.Unlock()

		if fn == nil {
			return
		}
		if err := fn(LogCallback); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "EnsureInitialized",
				"error":    err.Error(),
			}).Error("SASL library initialisation failed")
			initErr = err
		}
	})
	return initErr
}

// LogCallback routes library log messages to logrus.
func LogCallback(priority int, message string) {
	entry := logrus.WithFields(logrus.Fields{
		"package":  "sasl",
		"priority": priority,
	})

	switch {
	case priority <= LogNone:
		return
	case priority <= LogFail:
		entry.Error(message)
	case priority == LogWarn:
		entry.Warn(message)
	case priority == LogNote:
		entry.Info(message)
	case priority == LogDebug:
		entry.Debug(message)
	default:
		entry.Trace(message)
	}
}
