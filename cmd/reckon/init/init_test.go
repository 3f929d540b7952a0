package initcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/reckon/cmd/reckon/init"
	"github.com/papercomputeco/reckon/pkg/config"
)

var _ = Describe("Init command", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "reckon-init-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("creates the .reckon directory", func() {
		Expect(execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".reckon"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())
		Expect(out.String()).To(ContainSubstring("Initialized"))
	})

	It("is idempotent", func() {
		Expect(execute()).To(Succeed())
		Expect(execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Already initialized"))
	})

	It("writes a preset config", func() {
		Expect(execute("--preset", "small")).To(Succeed())

		cfg, err := config.LoadFile(filepath.Join(tmpDir, ".reckon", "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Attention.ConceptBagSize).To(Equal(100))
		Expect(cfg.Validate()).To(Succeed())
	})

	It("keeps an existing config unless forced", func() {
		Expect(execute("--preset", "small")).To(Succeed())
		Expect(execute("--preset", "large")).To(MatchError(ContainSubstring("already exists")))

		Expect(execute("--preset", "large", "--force")).To(Succeed())
		cfg, err := config.LoadFile(filepath.Join(tmpDir, ".reckon", "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Attention.ConceptBagSize).To(Equal(10000))
	})

	It("rejects unknown presets", func() {
		Expect(execute("--preset", "huge")).To(MatchError(ContainSubstring("unknown preset")))
	})
})
