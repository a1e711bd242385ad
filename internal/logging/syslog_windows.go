package logging

import "github.com/pkg/errors"

func setSyslog() error {
	return errors.New("syslog is not supported on windows")
}
