package onboarding

// Button labels, matched against incoming text the way the privacy-consent
// button is matched in the main menu.
const (
	ChoiceCity = "Указать город"
	ChoiceGeo  = "Отправить геолокацию"
)

const (
	promptLocationMethod = "Как укажем твоё местоположение? Выбери способ."
	promptCity           = "Введи название своего города:"
	promptShareGeo       = "Отправь свою геолокацию кнопкой ниже."
	promptLocationSaved  = "Местоположение сохранено!"
	promptAskAge         = "Местоположение сохранено! Теперь заполним анкету. Сколько тебе лет?"
	promptAgeOnly        = "Заполним анкету. Сколько тебе лет?"
	promptAgeInvalid     = "Введи возраст числом от 18 до 100."
	promptGender         = "Укажи свой пол: мужской или женский."
	promptGenderInvalid  = "Не понял. Напиши «мужской» или «женский»."
	promptInterests      = "Перечисли свои интересы через запятую:"
	promptPhoto          = "Пришли своё фото для анкеты."
	promptPhotoInvalid   = "Нужно именно фото. Пришли одну фотографию."
	promptDone           = "Анкета заполнена!"
)
