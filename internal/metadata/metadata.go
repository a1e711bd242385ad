package metadata

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
)

var (
	mux sync.RWMutex

	static map[string]string
	cmnds  map[string]string
	cached map[string]string

	interval       time.Duration
	maxExecution   time.Duration
	splitDelimiter string
)

// Setup configures the metadata package. The meta-data is attached to every
// published sample.
func Setup(conf config.Config) error {
	mux.Lock()
	defer mux.Unlock()

	static = conf.MetaData.Static
	cmnds = conf.MetaData.Dynamic.Commands

	interval = conf.MetaData.Dynamic.ExecutionInterval
	maxExecution = conf.MetaData.Dynamic.MaxExecutionDuration
	splitDelimiter = conf.MetaData.Dynamic.SplitDelimiter

	if interval == 0 {
		interval = time.Minute
	}
	if splitDelimiter == "" {
		splitDelimiter = "="
	}

	log.WithFields(log.Fields{
		"static_count":  len(static),
		"command_count": len(cmnds),
		"interval":      interval,
	}).Info("metadata: starting meta-data collection")

	go func() {
		for {
			runCommands()
			time.Sleep(interval)
		}
	}()

	return nil
}

// Get returns the (cached) meta-data.
func Get() map[string]string {
	mux.RLock()
	defer mux.RUnlock()

	return cached
}

func runCommands() {
	newKV := make(map[string]string)
	for k, v := range static {
		newKV[k] = v
	}

	for k, cmd := range cmnds {
		out, err := runCommand(cmd)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"key": k,
				"cmd": cmd,
			}).Error("metadata: execute command error")
			continue
		}

		rows := strings.Split(out, "\n")
		if len(rows) == 1 {
			newKV[k] = out
			continue
		}

		// multiple rows are expected in key<delimiter>value format
		for _, row := range rows {
			kv := strings.SplitN(row, splitDelimiter, 2)
			if len(kv) != 2 {
				log.WithFields(log.Fields{
					"key": k,
					"row": row,
				}).Warning("metadata: row does not contain the split delimiter")
				continue
			}
			newKV[k+"_"+kv[0]] = kv[1]
		}
	}

	mux.Lock()
	defer mux.Unlock()
	cached = newKV
}

func runCommand(cmdStr string) (string, error) {
	cmdArgs, err := parseCommandLine(cmdStr)
	if err != nil {
		return "", errors.Wrap(err, "parse command error")
	}
	if len(cmdArgs) == 0 {
		return "", errors.New("no command is given")
	}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(maxExecution))
	defer cancel()

	cmd := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return "", errors.Wrap(err, "execution error")
	}

	if !utf8.Valid(out) {
		return "", errors.New("command did not return valid utf8 string")
	}

	return strings.TrimRight(string(out), "\n\r"), nil
}

// parseCommandLine splits the command into its arguments. Single and double
// quotes group arguments, a backslash escapes the next character outside
// quotes.
func parseCommandLine(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	var inArg, escaped bool
	var quote byte

	for i := 0; i < len(command); i++ {
		c := command[i]

		switch {
		case quote != 0:
			if c == quote {
				args = append(args, current.String())
				current.Reset()
				quote = 0
				inArg = false
			} else {
				current.WriteByte(c)
			}
		case escaped:
			current.WriteByte(c)
			escaped = false
			inArg = true
		case c == '\\':
			escaped = true
		case c == '"' || c == '\'':
			quote = c
		case c == ' ' || c == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteByte(c)
			inArg = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unclosed quote in command line: %s", command)
	}

	if inArg {
		args = append(args, current.String())
	}

	return args, nil
}
