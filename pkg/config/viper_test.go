package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/reckon/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("api.listen")).To(Equal(defaults.API.Listen))
		Expect(v.GetInt("memory.stm_size")).To(Equal(defaults.Memory.STMSize))
		Expect(v.GetString("journal.driver")).To(Equal(config.JournalNone))
	})

	It("reads config file values over defaults", func() {
		writeConfig(tmpDir, `[memory]
volume = 40
`)
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetInt("memory.volume")).To(Equal(40))
		Expect(v.GetInt("memory.stm_size")).To(Equal(config.NewDefaultConfig().Memory.STMSize))
	})

	It("respects environment variables with RECKON_ prefix", func() {
		GinkgoT().Setenv("RECKON_API_LISTEN", ":6000")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(":6000"))
	})

	It("env vars take precedence over config file values", func() {
		writeConfig(tmpDir, `[journal]
driver = "sqlite"
`)
		GinkgoT().Setenv("RECKON_JOURNAL_DRIVER", "memory")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("journal.driver")).To(Equal("memory"))
	})

	Describe("FromViper", func() {
		It("resolves every layer into a Config", func() {
			writeConfig(tmpDir, `[memory]
volume = 40
forget_floor = 0.2

[api]
enabled = true
`)
			GinkgoT().Setenv("RECKON_MEMORY_STM_SIZE", "6")

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := config.FromViper(v)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Memory.Volume).To(Equal(40))
			Expect(cfg.Memory.ForgetFloor).To(Equal(0.2))
			Expect(cfg.Memory.STMSize).To(Equal(6))
			Expect(cfg.API.Enabled).To(BeTrue())
			Expect(cfg.Runner.FrameInterval).To(Equal("100ms"))
		})

		It("reports malformed environment values", func() {
			GinkgoT().Setenv("RECKON_MEMORY_THREADS", "lots")

			v, err := config.InitViper(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = config.FromViper(v)
			Expect(err).To(MatchError(ContainSubstring("memory.threads")))
		})
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &listen)

		Expect(cmd.Flags().Set("api-listen", ":7777")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPIListen})

		Expect(v.GetString("api.listen")).To(Equal(":7777"))
	})

	It("falls through to config when flag not set", func() {
		writeConfig(tmpDir, `[api]
listen = ":5555"
`)
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &listen)
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPIListen})

		Expect(v.GetString("api.listen")).To(Equal(":5555"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{"nonexistent"})

		Expect(v.GetString("api.listen")).To(Equal(config.NewDefaultConfig().API.Listen))
	})

	It("AddStringFlag pulls name, shorthand, and description from FlagSet", func() {
		cmd := &cobra.Command{Use: "test"}
		var driver string
		config.AddStringFlag(cmd, config.Flags, config.FlagJournal, &driver)

		f := cmd.Flags().Lookup("journal")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("j"))
		Expect(f.Usage).To(Equal(config.Flags[config.FlagJournal].Description))
		Expect(f.DefValue).To(Equal(config.JournalNone))
	})

	It("AddUintFlag takes its default from the config", func() {
		cmd := &cobra.Command{Use: "test"}
		var cycles uint
		config.AddUintFlag(cmd, config.Flags, config.FlagCyclesPerFrame, &cycles)

		f := cmd.Flags().Lookup("cycles-per-frame")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("10"))
		Expect(cycles).To(Equal(uint(10)))
	})

	It("AddBoolFlag binds to a bool key", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var serve bool
		config.AddBoolFlag(cmd, config.Flags, config.FlagServe, &serve)
		Expect(cmd.Flags().Set("serve", "true")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagServe})

		Expect(v.GetBool("api.enabled")).To(BeTrue())
	})
})
