package pipeline

import "github.com/qazlegal/norma/pkg/models"

// LegalAnalysisStages returns the preset three-stage flow for statute
// analysis: large-context extraction, legal reasoning, then a concise
// user-facing summary.
func LegalAnalysisStages() []models.StageDescriptor {
	return []models.StageDescriptor{
		{
			Name:         "Обработка документа",
			CategoryHint: models.CategoryLargeDocument,
			PromptTemplate: "Ты помощник-юрист, специализирующийся на НПА РК.\n\n" +
				"Проанализируй следующий текст закона или кодекса и извлеки " +
				"ключевые статьи, положения и определения:\n\n{input}\n\n" +
				"Структурируй информацию по разделам.",
		},
		{
			Name:         "Правовой анализ",
			CategoryHint: models.CategoryReasoning,
			PromptTemplate: "Ты эксперт по праву Казахстана.\n\n" +
				"На основе извлечённых данных:\n{input}\n\n" +
				"Проведи детальный правовой анализ:\n" +
				"1. Определи применимые нормы права\n" +
				"2. Проанализируй правовые последствия\n" +
				"3. Выяви возможные коллизии или противоречия\n" +
				"4. Предложи юридическое заключение",
		},
		{
			Name:         "Формирование ответа",
			CategoryHint: models.CategoryGeneral,
			PromptTemplate: "На основе правового анализа:\n{input}\n\n" +
				"Сформулируй краткий, понятный ответ для пользователя, " +
				"сохранив все важные юридические детали.",
		},
	}
}

// DocumentQAStages returns the preset flow for question answering over
// a large document. The initial input is the document text; the
// question is passed as the "question" template variable.
func DocumentQAStages() []models.StageDescriptor {
	return []models.StageDescriptor{
		{
			Name:         "Индексация документа",
			CategoryHint: models.CategoryLargeDocument,
			PromptTemplate: "Документ для анализа:\n{input}\n\n" +
				"Вопрос пользователя: {question}\n\n" +
				"Найди и извлеки все релевантные разделы документа, " +
				"которые относятся к вопросу.",
		},
		{
			Name:         "Генерация ответа",
			CategoryHint: models.CategoryReasoning,
			PromptTemplate: "Релевантные разделы:\n{input}\n\n" +
				"Вопрос: {question}\n\n" +
				"Предоставь детальный, обоснованный ответ на вопрос, " +
				"опираясь на найденную информацию.",
		},
		{
			Name:         "Форматирование",
			CategoryHint: models.CategoryQuick,
			PromptTemplate: "Ответ для форматирования:\n{input}\n\n" +
				"Отформатируй ответ в понятном, структурированном виде.",
		},
	}
}
