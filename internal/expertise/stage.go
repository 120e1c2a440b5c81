// Package expertise runs independent expert-analysis stages over every
// trackable fragment of a segmented document, drives the completeness
// tracker, and aggregates the (fragment, stage) result matrix.
package expertise

import (
	"strings"

	"github.com/qazlegal/norma/pkg/models"
)

// Stage is one independent expert filter. Stages never depend on each
// other's output; each produces a one-shot analysis per fragment.
type Stage interface {
	// Name identifies the stage in results, skip-lists, and logs.
	Name() string
	// SystemPrompt returns the stage's system instruction.
	SystemPrompt() string
	// AnalysisPrompt renders the per-fragment analysis prompt. The
	// checklist is the document's table of contents and lets the
	// model see the fragment in context.
	AnalysisPrompt(frag models.Fragment, checklist string) string
	// CategoryHint biases classification for this stage's calls.
	CategoryHint() models.TaskCategory
}

// ExpertStage is a declarative stage: the variants of expert analysis
// differ only in their prompts, so they share one descriptor type
// instead of one implementation each.
type ExpertStage struct {
	// StageName is the display name of the stage.
	StageName string `json:"name" yaml:"name" mapstructure:"name"`
	// System is the system instruction sent with every call.
	System string `json:"system_prompt" yaml:"system_prompt" mapstructure:"system_prompt"`
	// Template is the per-fragment prompt. Placeholders: {number},
	// {path}, {text}, {checklist}.
	Template string `json:"prompt_template" yaml:"prompt_template" mapstructure:"prompt_template"`
	// Hint is the classification category for this stage's calls.
	Hint models.TaskCategory `json:"category_hint,omitempty" yaml:"category_hint" mapstructure:"category_hint"`
}

func (e ExpertStage) Name() string         { return e.StageName }
func (e ExpertStage) SystemPrompt() string { return e.System }

func (e ExpertStage) CategoryHint() models.TaskCategory {
	if e.Hint == "" {
		return models.CategoryReasoning
	}
	return e.Hint
}

func (e ExpertStage) AnalysisPrompt(frag models.Fragment, checklist string) string {
	r := strings.NewReplacer(
		"{number}", frag.Number,
		"{path}", frag.FullPath,
		"{text}", frag.Text,
		"{checklist}", checklist,
	)
	return r.Replace(e.Template)
}

// Stage names of the default expertise set. Skip-lists reference these.
const (
	StageRelevance         = "Фильтр Релевантности"
	StageConstitutionality = "Фильтр Конституционности"
	StageSystemIntegration = "Фильтр Системной Интеграции"
	StageLegalTechnical    = "Юридико-техническая Экспертиза"
	StageAntiCorruption    = "Антикоррупционная Экспертиза"
	StageGender            = "Гендерная Экспертиза"
)

// fragmentPreamble is shared by every default stage template: it pins
// the model to the one fragment under analysis so it cannot wander
// into neighboring articles.
const fragmentPreamble = "Оглавление документа (для контекста):\n{checklist}\n\n" +
	"Анализируемый фрагмент: {path}\n\n" +
	"Текст фрагмента:\n{text}\n\n" +
	"Анализируй ТОЛЬКО этот фрагмент. "

// DefaultStages returns the six-stage expertise set applied to
// regulatory legal acts: three screening filters followed by three
// substantive expert reviews.
func DefaultStages() []Stage {
	return []Stage{
		ExpertStage{
			StageName: StageRelevance,
			System: "Ты эксперт по нормативным правовым актам Республики Казахстан. " +
				"Твоя задача — проверять релевантность норм: соответствует ли содержание " +
				"статьи заявленному предмету регулирования документа.",
			Template: fragmentPreamble +
				"Оцени:\n" +
				"1. Соответствует ли норма предмету регулирования документа\n" +
				"2. Есть ли положения, выходящие за рамки предмета регулирования\n" +
				"3. Вывод: РЕЛЕВАНТНА / НЕ РЕЛЕВАНТНА / ЧАСТИЧНО РЕЛЕВАНТНА, с обоснованием.",
		},
		ExpertStage{
			StageName: StageConstitutionality,
			System: "Ты эксперт по конституционному праву Республики Казахстан. " +
				"Твоя задача — проверять нормы на соответствие Конституции РК.",
			Template: fragmentPreamble +
				"Оцени:\n" +
				"1. Не противоречит ли норма положениям Конституции РК\n" +
				"2. Не ограничивает ли норма конституционные права и свободы без законных оснований\n" +
				"3. Вывод: СООТВЕТСТВУЕТ / НЕ СООТВЕТСТВУЕТ / ТРЕБУЕТ УТОЧНЕНИЯ, " +
				"с указанием конкретных статей Конституции.",
		},
		ExpertStage{
			StageName: StageSystemIntegration,
			System: "Ты эксперт по системе законодательства Республики Казахстан. " +
				"Твоя задача — проверять согласованность норм с действующим законодательством.",
			Template: fragmentPreamble +
				"Оцени:\n" +
				"1. Согласуется ли норма с действующими кодексами и законами РК\n" +
				"2. Есть ли коллизии с нормами равной или высшей юридической силы\n" +
				"3. Требуются ли сопутствующие изменения в других актах\n" +
				"4. Вывод с перечнем затронутых актов.",
		},
		ExpertStage{
			StageName: StageLegalTechnical,
			System: "Ты эксперт по юридической технике. Твоя задача — оценивать качество " +
				"юридического оформления норм: терминологию, структуру, отсылки.",
			Template: fragmentPreamble +
				"Оцени:\n" +
				"1. Единообразие и определённость терминологии\n" +
				"2. Корректность отсылок к другим нормам\n" +
				"3. Ясность и однозначность формулировок\n" +
				"4. Перечень выявленных дефектов юридической техники с предложениями по исправлению.",
		},
		ExpertStage{
			StageName: StageAntiCorruption,
			System: "Ты эксперт по антикоррупционной экспертизе нормативных правовых актов. " +
				"Твоя задача — выявлять коррупциогенные факторы в нормах.",
			Template: fragmentPreamble +
				"Проверь на коррупциогенные факторы:\n" +
				"1. Широта дискреционных полномочий\n" +
				"2. Неопределённость условий или оснований принятия решения\n" +
				"3. Отсутствие или неполнота административных процедур\n" +
				"4. Вывод: коррупциогенные факторы ВЫЯВЛЕНЫ / НЕ ВЫЯВЛЕНЫ, с перечнем.",
		},
		ExpertStage{
			StageName: StageGender,
			System: "Ты эксперт по гендерной экспертизе нормативных правовых актов. " +
				"Твоя задача — оценивать влияние норм на равенство прав мужчин и женщин.",
			Template: fragmentPreamble +
				"Оцени:\n" +
				"1. Содержит ли норма положения, дискриминирующие по признаку пола\n" +
				"2. Обеспечивает ли норма равные права и возможности\n" +
				"3. Вывод: гендерно НЕЙТРАЛЬНА / содержит РИСКИ, с обоснованием.",
		},
	}
}
