package main

import (
	"context"
	"os"

	"github.com/ProtonMail/go-mailstream/mbox"
	"github.com/ProtonMail/go-mailstream/rfc822"
	"github.com/ProtonMail/go-mailstream/version"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
)

func main() {
	if level, err := logrus.ParseLevel(os.Getenv("MAILSTREAM_LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	logrus.WithField("version", version.Current).Debug("Starting mailstream demo")

	if os.Getenv("MAILSTREAM_PROFILE_CPU") != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	if len(os.Args) != 2 {
		logrus.Fatalf("Usage: %v <mailbox.mbox>", os.Args[0])
	}

	f, err := os.Open(os.Args[1])
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open mailbox")
	}

	defer func() {
		if err := f.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close mailbox")
		}
	}()

	framer := mbox.NewFramer(f)

	var count int

	for msg := range framer.Messages(context.Background()) {
		count++

		diags := collectDiagnostics(msg)

		logrus.WithFields(logrus.Fields{
			"subject":     msg.Root.Header.Get("Subject"),
			"kind":        msg.Root.Kind,
			"parts":       len(msg.Root.Children),
			"start":       msg.Span.Start,
			"end":         msg.Span.End,
			"diagnostics": len(diags),
		}).Info("Parsed message")

		for _, diag := range diags {
			logrus.Warnf("Diagnostic: %v", diag)
		}
	}

	logrus.Infof("Parsed %v messages", count)
}

func collectDiagnostics(msg *mbox.FramedMessage) []rfc822.Diagnostic {
	return append(append([]rfc822.Diagnostic(nil), msg.Diagnostics...), msg.Root.AllDiagnostics()...)
}
