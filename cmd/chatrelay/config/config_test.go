package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/config"
	"github.com/papercomputeco/chatrelay/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))

		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	newCmd := func(args ...string) *cobra.Command {
		cmd := configcmder.NewConfigCmd()
		cmd.PersistentFlags().String("config-dir", tmpDir, "")
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd
	}

	Describe("set", func() {
		It("writes the value to config.toml", func() {
			Expect(newCmd("set", "relay.listen", ":9000").Execute()).To(Succeed())

			data, err := os.ReadFile(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`listen = ":9000"`))
		})

		It("rejects unknown keys", func() {
			Expect(newCmd("set", "proxy.listen", ":9000").Execute()).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects values of the wrong type", func() {
			Expect(newCmd("set", "gemini.top_k", "many").Execute()).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(newCmd("set", "relay.listen").Execute()).To(HaveOccurred())
		})

		It("masks secrets in its output", func() {
			Expect(newCmd("set", "gemini.api_key", "abcdef123456").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("****3456"))
			Expect(out.String()).NotTo(ContainSubstring("abcdef123456"))
		})
	})

	Describe("get", func() {
		It("prints a previously set value", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetConfigValue("gemini.model", "gemini-2.0-flash")).To(Succeed())

			Expect(newCmd("get", "gemini.model").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("gemini-2.0-flash"))
		})

		It("marks unset keys", func() {
			Expect(newCmd("get", "client.bearer_token").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})
	})

	Describe("list", func() {
		It("prints every key", func() {
			Expect(newCmd("list").Execute()).To(Succeed())
			for _, k := range config.ValidConfigKeys() {
				Expect(out.String()).To(ContainSubstring(k))
			}
		})
	})
})
