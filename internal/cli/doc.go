// Package cli provides the command-line interface of studycards: the cobra
// command tree, flag to viper bindings, configuration loading and
// validation, and logger setup.
package cli
