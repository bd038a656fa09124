// Package cmd implements top level commands
package cmd

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/iancoleman/strcase"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

const (
	logFormatJSON    = "json"
	logFormatConsole = "console"
)

func envName(name string) string {
	return strcase.ToScreamingSnake(name)
}

func setupLogger(debug bool, format string) {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	opts := zap.Options{
		Level:           level,
		StacktraceLevel: zapcore.DPanicLevel,
		Development:     format == logFormatConsole,
	}
	logger := zap.New(zap.UseFlagOptions(&opts))
	ctrl.SetLogger(logger)
	klog.SetLogger(logger.WithName("client-go"))
}

func getScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	for _, apply := range []struct {
		name string
		fn   func(*runtime.Scheme) error
	}{
		{"core", clientgoscheme.AddToScheme},
	} {
		if err := apply.fn(scheme); err != nil {
			return nil, fmt.Errorf("%s: %w", apply.name, err)
		}
	}
	return scheme, nil
}

// viperWalk sets flags not given on the command line from the environment.
// Each flag is bound to its SCREAMING_SNAKE name first, then to any aliases.
func viperWalk(flags *pflag.FlagSet, aliases map[string][]string) error {
	v := viper.New()
	var errs *multierror.Error
	flags.VisitAll(func(f *pflag.Flag) {
		env := append([]string{f.Name, envName(f.Name)}, aliases[f.Name]...)
		if err := v.BindEnv(env...); err != nil {
			errs = multierror.Append(errs, err)
			return
		}

		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := flags.Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", f.Name, err))
			}
		}
	})
	return errs.ErrorOrNil()
}
