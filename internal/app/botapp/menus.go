package botapp

const (
	consentButton = "Я согласен с политикой конфиденциальности"

	menuFillProfile    = "Заполнить анкету"
	menuFindPair       = "Найти пару"
	menuMyMatches      = "Мои пары"
	menuUpdateLocation = "Изменить местоположение"

	shareLocationButton = "Отправить геолокацию"

	genderMale   = "Мужской"
	genderFemale = "Женский"

	matchListLimit = 20
)

const (
	consentText = "Привет! Прежде чем начать, подтверди согласие с политикой конфиденциальности."

	consentAcceptedText = "Спасибо! Теперь можно заполнить анкету и искать пару."

	greetingText = "С возвращением! Выбери действие в меню."

	helpText = "Я помогаю найти пару.\n" +
		"«Заполнить анкету» — рассказать о себе.\n" +
		"«Найти пару» — смотреть анкеты рядом с тобой.\n" +
		"«Мои пары» — список взаимных симпатий.\n" +
		"«Изменить местоположение» — обновить город или геолокацию.\n" +
		"/cancel — прервать заполнение анкеты."

	unknownCommandText = "Не знаю такой команды. Попробуй /help."
	unknownActionText  = "Непонятное действие. Попробуй ещё раз."
	cancelledText      = "Хорошо, вернулись в меню."
	menuHintText       = "Выбери действие в меню."
	tryAgainText       = "Что-то пошло не так. Попробуй ещё раз."
	photoFailedText    = "Не получилось сохранить фото. Пришли его ещё раз."

	profileFirstText  = "Сначала заполни анкету."
	noCandidatesText  = "Пока никого не нашлось. Загляни позже!"
	goneCandidateText = "Этой анкеты уже нет."
	likedText         = "Симпатия отправлена!"
	matchedText       = "Это взаимно!"

	myMatchesTitle = "Твои пары:"
	noMatchesText  = "Взаимных симпатий пока нет. Продолжай искать!"
)

func mainMenuRows() [][]string {
	return [][]string{
		{menuFillProfile, menuFindPair},
		{menuMyMatches, menuUpdateLocation},
	}
}
