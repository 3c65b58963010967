package models

import "strings"

// Model categories shown in the feed. Hub pipeline tags are mapped onto these.
const (
	ModelCategoryLanguage   = "language"
	ModelCategoryVision     = "vision"
	ModelCategoryAudio      = "audio"
	ModelCategoryMultimodal = "multimodal"
	ModelCategoryGenerative = "image-generation"
	ModelCategoryEmbedding  = "embedding"
	ModelCategoryOther      = "other"
)

var pipelineTagCategories = map[string]string{
	"text-generation":                ModelCategoryLanguage,
	"text2text-generation":           ModelCategoryLanguage,
	"fill-mask":                      ModelCategoryLanguage,
	"question-answering":             ModelCategoryLanguage,
	"summarization":                  ModelCategoryLanguage,
	"translation":                    ModelCategoryLanguage,
	"text-classification":            ModelCategoryLanguage,
	"token-classification":           ModelCategoryLanguage,
	"zero-shot-classification":       ModelCategoryLanguage,
	"image-classification":           ModelCategoryVision,
	"object-detection":               ModelCategoryVision,
	"image-segmentation":             ModelCategoryVision,
	"depth-estimation":               ModelCategoryVision,
	"zero-shot-image-classification": ModelCategoryVision,
	"automatic-speech-recognition":   ModelCategoryAudio,
	"text-to-speech":                 ModelCategoryAudio,
	"audio-classification":           ModelCategoryAudio,
	"text-to-audio":                  ModelCategoryAudio,
	"image-text-to-text":             ModelCategoryMultimodal,
	"visual-question-answering":      ModelCategoryMultimodal,
	"image-to-text":                  ModelCategoryMultimodal,
	"any-to-any":                     ModelCategoryMultimodal,
	"text-to-image":                  ModelCategoryGenerative,
	"image-to-image":                 ModelCategoryGenerative,
	"text-to-video":                  ModelCategoryGenerative,
	"feature-extraction":             ModelCategoryEmbedding,
	"sentence-similarity":            ModelCategoryEmbedding,
}

// CategoryForPipelineTag maps a model hub pipeline tag to a feed category
func CategoryForPipelineTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if category, ok := pipelineTagCategories[tag]; ok {
		return category
	}
	return ModelCategoryOther
}
