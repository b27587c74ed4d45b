package message

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenoncommunity/xenon/pkg/util/componentutil"
)

func TestCatalog_Sprintf(t *testing.T) {
	c := NewCatalog(nil)
	assert.Equal(t, "Outdated client! Please use 1.21", c.Sprintf("en_us", OutdatedClient, "1.21"))
	assert.Equal(t, "Veralteter Client! Bitte benutze 1.21", c.Sprintf("de_de", OutdatedClient, "1.21"))
	// missing German translation falls back to English
	assert.Equal(t, "Chat message is empty", c.Sprintf("de_de", EmptyChat))
	assert.Equal(t, "Chat message is empty", c.Sprintf("", EmptyChat))
	assert.Equal(t, "Chat message is empty", c.Sprintf("not a locale!", EmptyChat))
}

func TestCatalog_Overrides(t *testing.T) {
	c := NewCatalog(map[Key]string{ProxyFull: "Come back later"})
	assert.Equal(t, "Come back later", c.Sprintf("en_GB", ProxyFull))
}

func TestCatalog_Component(t *testing.T) {
	comp := Default.Component("en_us", AlreadyConnected)
	assert.Equal(t, "You are already connected to this server!", componentutil.Plain(comp))
}

func TestCatalog_UnknownLocaleUsesEnglish(t *testing.T) {
	assert.Equal(t, "Server is full!", Default.Sprintf("fr_fr", ProxyFull))
}
