package daemon

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jvollmer/go-flow/engine"
)

const (
	envPrefix = "GO_FLOW_"

	optDefaultQueryLimit       = "DEFAULT_QUERY_LIMIT"
	optEngineId                = "ENGINE_ID"
	optProcessExecutorEnabled  = "PROCESS_EXECUTOR_ENABLED"
	optProcessExecutorInterval = "PROCESS_EXECUTOR_INTERVAL"
	optProcessExecutorLimit    = "PROCESS_EXECUTOR_LIMIT"
)

var (
	version = "unknown-version"
)

func newConf() *conf {
	env := env{}
	for _, value := range os.Environ() {
		env.Set(value)
	}

	conf := conf{
		envFile: envFile{env},
		opts:    make(map[string]*confOpt),
	}

	conf.addEngineOption(
		optDefaultQueryLimit,
		"default limit for queries, executed without an explicit limit",
		func(o engine.Options) string {
			return strconv.Itoa(o.DefaultQueryLimit)
		},
		func(o *engine.Options, co *confOpt) error {
			defaultQueryLimit, err := strconv.ParseInt(co.value(), 10, 32)
			o.DefaultQueryLimit = int(defaultQueryLimit)
			return err
		},
	)
	conf.addEngineOption(
		optEngineId,
		"ID of the engine",
		func(o engine.Options) string {
			return o.EngineId
		},
		func(o *engine.Options, co *confOpt) error {
			engineId := co.value()
			if engineId == "" {
				return errors.New("is empty")
			}

			o.EngineId = engineId
			return nil
		},
	)
	conf.addEngineOption(
		optProcessExecutorEnabled,
		"enable or disable the engine's process executor",
		func(o engine.Options) string {
			return strconv.FormatBool(o.ProcessExecutorEnabled)
		},
		func(o *engine.Options, co *confOpt) error {
			processExecutorEnabled, err := strconv.ParseBool(co.value())
			o.ProcessExecutorEnabled = processExecutorEnabled
			return err
		},
	)
	conf.addEngineOption(
		optProcessExecutorInterval,
		"interval between re-driving running process instances",
		func(o engine.Options) string {
			return o.ProcessExecutorInterval.String()
		},
		func(o *engine.Options, co *confOpt) error {
			processExecutorInterval, err := time.ParseDuration(co.value())
			o.ProcessExecutorInterval = processExecutorInterval
			return err
		},
	)
	conf.addEngineOption(
		optProcessExecutorLimit,
		"maximum number of running process instances to re-drive at once",
		func(o engine.Options) string {
			return strconv.Itoa(o.ProcessExecutorLimit)
		},
		func(o *engine.Options, co *confOpt) error {
			processExecutorLimit, err := strconv.ParseInt(co.value(), 10, 32)
			o.ProcessExecutorLimit = int(processExecutorLimit)
			return err
		},
	)

	return &conf
}

func listConf(conf *conf) int {
	opts := make([]*confOpt, len(conf.opts))

	i := 0
	for _, opt := range conf.opts {
		opts[i] = opt
		i++
	}

	slices.SortFunc(opts, func(a *confOpt, b *confOpt) int {
		return strings.Compare(a.key, b.key)
	})

	log.SetFlags(0)
	for _, opt := range opts {
		log.Printf("%s=%s", opt.key, opt.value())
	}

	return 0
}

func listConfErrors(conf *conf) int {
	var opts []*confOpt

	for _, opt := range conf.opts {
		if opt.err != nil {
			opts = append(opts, opt)
		}
	}

	if len(opts) == 0 {
		return 0
	}

	slices.SortFunc(opts, func(a *confOpt, b *confOpt) int {
		return strings.Compare(a.key, b.key)
	})

	log.SetFlags(0)
	for _, opt := range opts {
		value := opt.value()
		if value == "" {
			log.Printf("%s: %v", opt.key, opt.err)
		} else {
			log.Printf("%s=%s: %v", opt.key, value, opt.err)
		}
	}

	return 1
}

func listConfOpts(conf *conf) int {
	opts := make([]*confOpt, len(conf.opts))

	i := 0
	for _, opt := range conf.opts {
		opts[i] = opt
		i++
	}

	slices.SortFunc(opts, func(a *confOpt, b *confOpt) int {
		return strings.Compare(a.key, b.key)
	})

	maxKeyLength := 0
	for _, opt := range opts {
		keyLength := len(opt.key)
		if opt.required {
			keyLength++
		}

		if keyLength > maxKeyLength {
			maxKeyLength = keyLength
		}
	}

	var sb strings.Builder
	for _, opt := range opts {
		sb.WriteString(opt.key)

		l := len(opt.key)
		if opt.required {
			sb.WriteRune('*')
			l++
		}

		sb.WriteString(strings.Repeat(" ", maxKeyLength-l))
		sb.WriteString("   ")
		sb.WriteString(opt.description)

		if opt.defaultValue != "" {
			sb.WriteString(fmt.Sprintf(" - default: %s", opt.defaultValue))
		}

		sb.WriteRune('\n')
	}

	log.SetFlags(0)
	log.Print(sb.String())

	return 0
}

func showVersion() int {
	log.Println(version)
	return 0
}

type conf struct {
	envFile envFile
	opts    map[string]*confOpt
}

func (c *conf) addEngineOption(
	key string,
	description string,
	getOption func(engine.Options) string,
	setOption func(*engine.Options, *confOpt) error,
) *confOpt {
	co := confOpt{
		env:         c.envFile.env,
		key:         envPrefix + key,
		description: description,

		getEngineOption: getOption,
		setEngineOption: setOption,
	}

	c.opts[key] = &co
	return &co
}

func (c *conf) addOption(key string, description string) *confOpt {
	co := confOpt{
		env:         c.envFile.env,
		key:         envPrefix + key,
		description: description,
	}

	c.opts[key] = &co
	return &co
}

func (c *conf) getEngineOptions(options *engine.Options) {
	for _, opt := range c.opts {
		if opt.setEngineOption != nil {
			if err := opt.setEngineOption(options, opt); err != nil {
				opt.err = err
			}
		}
	}
}

func (c *conf) setEngineOptions(options engine.Options) {
	for _, opt := range c.opts {
		if opt.getEngineOption != nil {
			opt.defaultValue = opt.getEngineOption(options)
		}
	}
}

type confOpt struct {
	env env

	key          string
	description  string
	required     bool
	defaultValue string

	getEngineOption func(engine.Options) string
	setEngineOption func(*engine.Options, *confOpt) error

	err error
}

func (o *confOpt) value() string {
	value := o.env[o.key]
	if value != "" {
		return value
	} else {
		return o.defaultValue
	}
}

type env map[string]string

func (v env) Set(value string) error {
	s := strings.SplitN(value, "=", 2)
	if len(s) != 2 {
		return fmt.Errorf("required format %s", v)
	}
	v[s[0]] = s[1]
	return nil
}

func (v env) String() string {
	return "<key>=<value>"
}

type envFile struct {
	env env
}

func (v envFile) Set(value string) error {
	file, err := os.Open(value)
	if err != nil {
		return err
	}

	defer file.Close()

	scanner := bufio.NewScanner(file)

	i := 0
	for scanner.Scan() {
		i++
		line := scanner.Text()
		if err := v.env.Set(line); err != nil {
			return fmt.Errorf("wrong format in line %d: required format %s", i, v.env)
		}
	}

	return nil
}

func (v envFile) String() string {
	return "<file>"
}
