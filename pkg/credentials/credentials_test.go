package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("targets credentials.toml in the override directory", func() {
		Expect(mgr.GetTarget()).To(HaveSuffix(filepath.Join(filepath.Base(tmpDir), "credentials.toml")))
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			data := `version = 0

[providers.gemini]
api_key = "AIza-test"
`
			Expect(os.WriteFile(mgr.GetTarget(), []byte(data), 0o600)).To(Succeed())

			key, err := mgr.GetKey(credentials.ProviderGemini)
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("AIza-test"))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(mgr.GetTarget(), []byte("[providers"), 0o600)).To(Succeed())

			_, err := mgr.Load()
			Expect(err).To(MatchError(ContainSubstring("parsing credentials")))
		})
	})

	Describe("SetKey", func() {
		It("stores the key with restricted permissions", func() {
			Expect(mgr.SetKey(credentials.ProviderGemini, "k1")).To(Succeed())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			key, err := mgr.GetKey(credentials.ProviderGemini)
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("k1"))
		})

		It("preserves other provider keys", func() {
			Expect(mgr.SetKey(credentials.ProviderGemini, "k1")).To(Succeed())
			Expect(mgr.SetKey(credentials.ProviderRelay, "t1")).To(Succeed())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(Equal([]string{"gemini", "relay"}))
		})

		It("rejects unknown providers", func() {
			Expect(mgr.SetKey("openai", "k")).To(MatchError(ContainSubstring("unsupported provider")))
		})
	})

	Describe("RemoveKey", func() {
		It("removes an existing key", func() {
			Expect(mgr.SetKey(credentials.ProviderGemini, "k1")).To(Succeed())
			Expect(mgr.RemoveKey(credentials.ProviderGemini)).To(Succeed())

			key, err := mgr.GetKey(credentials.ProviderGemini)
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("Fill", func() {
		It("keeps an explicit value", func() {
			Expect(mgr.SetKey(credentials.ProviderGemini, "stored")).To(Succeed())

			v, err := mgr.Fill("explicit", credentials.ProviderGemini)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("explicit"))
		})

		It("falls back to the stored value", func() {
			Expect(mgr.SetKey(credentials.ProviderGemini, "stored")).To(Succeed())

			v, err := mgr.Fill("", credentials.ProviderGemini)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("stored"))
		})
	})

	It("returns error for nil credentials", func() {
		Expect(mgr.Save(nil)).To(MatchError("cannot save nil credentials"))
	})
})

var _ = Describe("providers", func() {
	It("maps providers to their environment variables", func() {
		Expect(credentials.EnvVarForProvider(credentials.ProviderGemini)).To(Equal("GEMINI_API_KEY"))
		Expect(credentials.EnvVarForProvider("unknown")).To(BeEmpty())
	})

	It("knows the supported providers", func() {
		Expect(credentials.IsSupportedProvider("gemini")).To(BeTrue())
		Expect(credentials.IsSupportedProvider("anthropic")).To(BeFalse())
	})
})
