// Package processor wires the studycards components together behind the
// command-line interface. It builds the collaborator client, notification
// queue, audio and review sessions from the resolved configuration and runs
// each subcommand against them.
package processor
