package service

import (
	"context"
	"regexp"
	"strings"

	"family-finance/internal/model"
	"family-finance/internal/repository"
)

// DefaultLanguage seeds new languages when no base is given.
const DefaultLanguage = "pt"

var languagePattern = regexp.MustCompile(`^[a-z]{2}(-[A-Za-z]{2})?$`)

type TranslationInput struct {
	Language string `json:"language"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

type AddLanguageInput struct {
	Language string `json:"language"`
	Base     string `json:"base"`
}

// TranslationService serves and edits UI strings.
type TranslationService struct {
	settings *repository.SettingRepository
}

func NewTranslationService(settings *repository.SettingRepository) *TranslationService {
	return &TranslationService{settings: settings}
}

// Language returns the key to value map of lang.
func (s *TranslationService) Language(ctx context.Context, lang string) (map[string]string, error) {
	rows, err := s.settings.ActiveTranslations(ctx, lang)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *TranslationService) Languages(ctx context.Context) ([]string, error) {
	langs, err := s.settings.Languages(ctx)
	if err != nil {
		return nil, err
	}
	if langs == nil {
		langs = []string{}
	}
	return langs, nil
}

// All returns every active translation of every language for the editor.
func (s *TranslationService) All(ctx context.Context) ([]model.Translation, error) {
	return s.settings.ActiveTranslations(ctx, "")
}

func (s *TranslationService) Upsert(ctx context.Context, actor *model.User, in TranslationInput) (*model.Translation, error) {
	lang := strings.TrimSpace(in.Language)
	if !languagePattern.MatchString(lang) {
		return nil, invalid("language", "must be a language code such as pt or en-US")
	}
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return nil, invalid("key", "is required")
	}
	t := &model.Translation{Language: lang, Key: key, Value: in.Value, CreatedBy: actor.ID}
	if err := s.settings.UpsertTranslation(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AddLanguage copies every string of the base language into a new one and
// returns how many keys were added.
func (s *TranslationService) AddLanguage(ctx context.Context, actor *model.User, in AddLanguageInput) (int64, error) {
	lang := strings.TrimSpace(in.Language)
	if !languagePattern.MatchString(lang) {
		return 0, invalid("language", "must be a language code such as pt or en-US")
	}
	base := strings.TrimSpace(in.Base)
	if base == "" {
		base = DefaultLanguage
	}
	if base == lang {
		return 0, invalid("base", "must differ from language")
	}
	return s.settings.CopyLanguage(ctx, base, lang, actor.ID)
}
