package logger_test

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/pkg/logger"
)

func parseLine(buf *bytes.Buffer) map[string]any {
	var parsed map[string]any
	Expect(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed)).To(Succeed())
	return parsed
}

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("creates a default console logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("hello", zap.String("key", "value"))

			output := buf.String()
			Expect(output).To(ContainSubstring("hello"))
			Expect(output).To(ContainSubstring("key"))
			Expect(output).To(ContainSubstring("value"))
			Expect(output).To(ContainSubstring("INFO"))
		})

		It("respects debug level", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(true))
			l.Debug("debug msg")

			Expect(buf.String()).To(ContainSubstring("debug msg"))
		})

		It("filters debug when not enabled", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithDebug(false))
			l.Debug("hidden")

			Expect(buf.String()).To(BeEmpty())
		})

		It("creates a JSON logger", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.Info("structured", zap.Int("count", 42))

			parsed := parseLine(&buf)
			Expect(parsed["msg"]).To(Equal("structured"))
			Expect(parsed["count"]).To(BeNumerically("==", 42))
			Expect(parsed).To(HaveKey("time"))
		})

		It("colorizes levels when pretty", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true))
			l.Info("pretty output")

			Expect(buf.String()).To(ContainSubstring("pretty output"))
			Expect(buf.String()).To(ContainSubstring("\x1b["))
		})

		It("does not colorize plain buffers", func() {
			var buf bytes.Buffer
			logger.New(logger.WithWriter(&buf)).Info("plain")
			Expect(buf.String()).NotTo(ContainSubstring("\x1b["))
		})

		It("adds the caller with source enabled", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true), logger.WithSource(true))
			l.Info("where")

			Expect(parseLine(&buf)["caller"]).To(ContainSubstring("logger_test.go"))
		})

		It("supports multiple writers", func() {
			var buf1, buf2 bytes.Buffer
			l := logger.New(logger.WithWriters(&buf1, &buf2))
			l.Info("multi")

			Expect(buf1.String()).To(ContainSubstring("multi"))
			Expect(buf2.String()).To(ContainSubstring("multi"))
		})
	})

	Describe("NewLoggerWithWriters", func() {
		It("writes debug entries when asked", func() {
			var buf bytes.Buffer
			l := logger.NewLoggerWithWriters(true, &buf)
			l.Debug("verbose")
			Expect(buf.String()).To(ContainSubstring("verbose"))
		})
	})

	Describe("Nop", func() {
		It("does not panic on any method", func() {
			l := logger.Nop()
			Expect(func() {
				l.Debug("msg")
				l.Info("msg")
				l.Warn("msg")
				l.Error("msg")
				l.With(zap.String("key", "value")).Info("msg")
				l.Named("group").Info("msg")
			}).NotTo(Panic())
		})

		It("discards all output", func() {
			Expect(logger.Nop().Core().Enabled(zap.ErrorLevel)).To(BeFalse())
		})
	})

	Describe("Multi", func() {
		It("dispatches to all loggers", func() {
			var buf1, buf2 bytes.Buffer
			l1 := logger.New(logger.WithWriter(&buf1))
			l2 := logger.New(logger.WithWriter(&buf2), logger.WithJSON(true))
			multi := logger.Multi(l1, l2)

			multi.Info("broadcast", zap.String("key", "val"))

			Expect(buf1.String()).To(ContainSubstring("broadcast"))
			Expect(parseLine(&buf2)["key"]).To(Equal("val"))
		})

		It("keeps each logger's level", func() {
			var debug, info bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&debug), logger.WithDebug(true)),
				logger.New(logger.WithWriter(&info)),
			)
			multi.Debug("detail")

			Expect(debug.String()).To(ContainSubstring("detail"))
			Expect(info.String()).To(BeEmpty())
		})

		It("supports With on multi logger", func() {
			var buf bytes.Buffer
			multi := logger.Multi(logger.New(logger.WithWriter(&buf), logger.WithJSON(true)))

			multi.With(zap.String("component", "test")).Info("hello")

			Expect(parseLine(&buf)["component"]).To(Equal("test"))
		})
	})

	Describe("IsTerminal", func() {
		It("is false for buffers", func() {
			Expect(logger.IsTerminal(&bytes.Buffer{})).To(BeFalse())
		})

		It("is false for regular files", func() {
			f, err := os.CreateTemp(GinkgoT().TempDir(), "log")
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			Expect(logger.IsTerminal(f)).To(BeFalse())
		})
	})
})
