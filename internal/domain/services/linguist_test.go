package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralize_Regular(t *testing.T) {
	assert.Equal(t, "users", Pluralize("user"))
	assert.Equal(t, "books", Pluralize("book"))
}

func TestPluralize_Sibilants(t *testing.T) {
	assert.Equal(t, "boxes", Pluralize("box"))
	assert.Equal(t, "buses", Pluralize("bus"))
	assert.Equal(t, "dishes", Pluralize("dish"))
	assert.Equal(t, "churches", Pluralize("church"))
}

func TestPluralize_ConsonantY(t *testing.T) {
	assert.Equal(t, "categories", Pluralize("category"))
	assert.Equal(t, "cities", Pluralize("city"))
	// vowel + y stays regular
	assert.Equal(t, "days", Pluralize("day"))
	assert.Equal(t, "keys", Pluralize("key"))
}

func TestPluralize_Irregular(t *testing.T) {
	assert.Equal(t, "people", Pluralize("person"))
	assert.Equal(t, "children", Pluralize("child"))
	assert.Equal(t, "mice", Pluralize("mouse"))
	assert.Equal(t, "sheep", Pluralize("sheep"))
}

func TestPluralize_MultiWord(t *testing.T) {
	assert.Equal(t, "blog posts", Pluralize("blog post"))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "user", Slugify("user"))
	assert.Equal(t, "blog-post", Slugify("Blog Post"))
	assert.Equal(t, "a-b-c", Slugify("  a  b  c  "))
	assert.Equal(t, "blog-post", Slugify("blog_post"))
}

func TestDeriveNoun(t *testing.T) {
	forms := DeriveNoun("blog post")
	assert.Equal(t, "blog post", forms.Singular)
	assert.Equal(t, "blog posts", forms.Plural)
	assert.Equal(t, "blog-post", forms.Slug)
}

func TestDeriveVerb_Create(t *testing.T) {
	forms := DeriveVerb("create")
	assert.Equal(t, "create", forms.Action)
	assert.Equal(t, "creates", forms.Act)
	assert.Equal(t, "creating", forms.Activity)
	assert.Equal(t, "created", forms.Event)
	assert.Equal(t, "createdBy", forms.ReverseBy)
	assert.Equal(t, "createdAt", forms.ReverseAt)
}

func TestDeriveVerb_Irregular(t *testing.T) {
	write := DeriveVerb("write")
	assert.Equal(t, "written", write.Event)
	assert.Equal(t, "writing", write.Activity)
	assert.Equal(t, "writes", write.Act)
	assert.Equal(t, "writtenBy", write.ReverseBy)

	send := DeriveVerb("send")
	assert.Equal(t, "sent", send.Event)

	make_ := DeriveVerb("make")
	assert.Equal(t, "made", make_.Event)
	assert.Equal(t, "making", make_.Activity)
}

func TestDeriveVerb_ThirdPerson(t *testing.T) {
	assert.Equal(t, "publishes", DeriveVerb("publish").Act)
	assert.Equal(t, "watches", DeriveVerb("watch").Act)
	assert.Equal(t, "flies", DeriveVerb("fly").Act)
	assert.Equal(t, "plays", DeriveVerb("play").Act)
	assert.Equal(t, "goes", DeriveVerb("go").Act)
}

func TestDeriveVerb_Gerund(t *testing.T) {
	// final e drops
	assert.Equal(t, "approving", DeriveVerb("approve").Activity)
	// CVC doubles
	assert.Equal(t, "tagging", DeriveVerb("tag").Activity)
	assert.Equal(t, "planning", DeriveVerb("plan").Activity)
	// w/x/y finals never double
	assert.Equal(t, "reviewing", DeriveVerb("review").Activity)
	assert.Equal(t, "fixing", DeriveVerb("fix").Activity)
}

func TestDeriveVerb_PastParticiple(t *testing.T) {
	assert.Equal(t, "approved", DeriveVerb("approve").Event)
	assert.Equal(t, "tagged", DeriveVerb("tag").Event)
	assert.Equal(t, "applied", DeriveVerb("apply").Event)
	assert.Equal(t, "played", DeriveVerb("play").Event)
}
