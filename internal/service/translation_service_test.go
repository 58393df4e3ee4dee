package service

import (
	"context"
	"errors"
	"testing"

	"family-finance/internal/model"
)

func TestTranslations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	editor := f.user(t, "tradutor", model.RoleTranslator, nil)
	svc := NewTranslationService(f.settings)

	for _, in := range []TranslationInput{
		{Language: "pt", Key: "menu.budget", Value: "Orçamento"},
		{Language: "pt", Key: "menu.goals", Value: "Metas"},
		{Language: "pt", Key: "menu.budget", Value: "Orçamento mensal"},
	} {
		if _, err := svc.Upsert(ctx, editor, in); err != nil {
			t.Fatalf("Upsert(%+v): %v", in, err)
		}
	}

	pt, err := svc.Language(ctx, "pt")
	if err != nil {
		t.Fatal(err)
	}
	if len(pt) != 2 || pt["menu.budget"] != "Orçamento mensal" {
		t.Fatalf("pt = %v", pt)
	}

	if _, err := svc.Upsert(ctx, editor, TranslationInput{Language: "en", Key: "menu.goals", Value: "Goals"}); err != nil {
		t.Fatal(err)
	}
	copied, err := svc.AddLanguage(ctx, editor, AddLanguageInput{Language: "en"})
	if err != nil {
		t.Fatal(err)
	}
	if copied != 1 {
		t.Fatalf("copied = %d, want 1", copied)
	}
	en, _ := svc.Language(ctx, "en")
	if en["menu.goals"] != "Goals" || en["menu.budget"] != "Orçamento mensal" {
		t.Fatalf("en = %v", en)
	}

	langs, err := svc.Languages(ctx)
	if err != nil || len(langs) != 2 || langs[0] != "en" {
		t.Fatalf("languages = %v, %v", langs, err)
	}

	var verr *ValidationError
	if _, err := svc.Upsert(ctx, editor, TranslationInput{Language: "portuguese", Key: "k"}); !errors.As(err, &verr) {
		t.Fatalf("bad language = %v", err)
	}
	if _, err := svc.AddLanguage(ctx, editor, AddLanguageInput{Language: "pt"}); !errors.As(err, &verr) {
		t.Fatalf("copy onto base = %v", err)
	}
}

func TestLanguagesEmpty(t *testing.T) {
	svc := NewTranslationService(newFixture(t).settings)
	langs, err := svc.Languages(context.Background())
	if err != nil || langs == nil || len(langs) != 0 {
		t.Fatalf("languages = %#v, %v", langs, err)
	}
}
