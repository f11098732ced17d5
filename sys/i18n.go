package sys

import (
	"fmt"
	"regexp"

	"golang.org/x/text/language"
)

// P holds named template parameters.
type P map[string]any

// Languages lists supported catalog codes, default first.
var Languages = []string{"en", "fr"}

var (
	langMatcher = language.NewMatcher([]language.Tag{language.English, language.French})
	placeholder = regexp.MustCompile(`\{(\w+)\}`)
)

// NormalizeLang maps any BCP 47 tag onto a supported catalog.
func NormalizeLang(s string) string {
	tag, err := language.Parse(s)
	if err != nil {
		return Languages[0]
	}
	_, idx, conf := langMatcher.Match(tag)
	if conf == language.No {
		return Languages[0]
	}
	return Languages[idx]
}

// IsLanguage reports whether s names a catalog directly.
func IsLanguage(s string) bool {
	_, ok := catalogs[s]
	return ok
}

// T renders key in lang, falling back to English and then the key itself.
// Unknown placeholders are left as written.
func T(lang, key string, p P) string {
	tmpl, ok := catalogs[lang][key]
	if !ok {
		if tmpl, ok = catalogs[Languages[0]][key]; !ok {
			return key
		}
	}
	if len(p) == 0 {
		return tmpl
	}
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		if v, ok := p[m[1:len(m)-1]]; ok {
			return fmt.Sprint(v)
		}
		return m
	})
}

var catalogs = map[string]map[string]string{
	"en": {
		"lang.name": "English",

		"scope.server": "in this server",
		"scope.text":   "in this channel",
		"scope.voice":  "in the voice channel",

		"error.permission.bot":  "I need the **{permission}** permission {scope} to do that.",
		"error.permission.user": "You need the **{permission}** permission {scope} to use this command.",
		"error.voice.none":      "You need to join a voice channel first.",
		"error.voice.different": "I'm already playing in <#{channel}>.",
		"error.voice.full":      "Your voice channel is full.",
		"error.generic":         "Something went wrong. Error id: `{id}`",
		"error.denied":          "`{command}` is disabled in this channel.",
		"error.ratelimited":     "Slow down! Try again in {seconds}s.",
		"error.owner":           "Only the bot owners can use this command.",
		"error.guild":           "This command only works in a server.",
		"error.option.missing":  "Missing required option `{option}`.",
		"error.option.invalid":  "Invalid value for `{option}`: `{value}`.",

		"music.nothing_playing":  "Nothing is playing right now.",
		"music.loading":          "The current song is still loading, try again in a moment.",
		"music.nothing_found":    "Nothing found for **{query}**.",
		"music.unsupported":      "I can't play links from that site.",
		"music.spotify_disabled": "Spotify links are not enabled on this bot.",
		"music.added":            "Added **{title}** to the queue at position {position}.",
		"music.added_many":       "Added {count} songs to the queue.",
		"music.now_playing":      "Now playing",
		"music.searching":        "Searching YouTube for **{query}**...",
		"music.failed":           "Could not play **{title}**: {error}",
		"music.requested_by":     "Requested by {user}",
		"music.live":             "LIVE",
		"music.skipped":          "Skipped {count} song(s).",
		"music.seeked":           "Seeking to {time}.",
		"music.not_seekable":     "Live streams can't be seeked.",
		"music.bad_time":         "`{value}` is not a valid time. Use seconds, mm:ss or hh:mm:ss.",
		"music.paused":           "Paused.",
		"music.already_paused":   "Playback is already paused.",
		"music.resumed":          "Resumed.",
		"music.not_paused":       "Playback is not paused.",
		"music.stopped":          "Stopped playback and cleared the queue.",
		"music.left":             "Left the voice channel.",
		"music.not_connected":    "I'm not in a voice channel.",
		"music.loop_on":          "Loop enabled.",
		"music.loop_off":         "Loop disabled.",
		"music.shuffle_on":       "Shuffle enabled.",
		"music.shuffle_off":      "Shuffle disabled.",
		"music.removed":          "Removed **{title}** from the queue.",
		"music.index_range":      "There is no song #{index} in the queue.",
		"music.volume":           "Volume set to {volume}%.",
		"music.volume_current":   "Volume is {volume}%.",
		"music.queue_empty":      "The queue is empty.",
		"music.queue_title":      "Queue",
		"music.queue_page":       "Page {page}/{pages}",
		"music.queue_footer":     "{count} songs · Loop: {loop} · Shuffle: {shuffle} · Volume: {volume}%",
		"music.on":               "on",
		"music.off":              "off",

		"config.prefix":           "Prefix set to `{prefix}`.",
		"config.prefix_current":   "The prefix is `{prefix}`.",
		"config.prefix_invalid":   "The prefix must be 1 to 5 characters without spaces.",
		"config.language":         "Language set to {name}.",
		"config.language_invalid": "Unsupported language. Available: {languages}.",
		"config.defaultvolume":    "Default volume set to {volume}%.",
		"config.telemetry":        "Telemetry level set to {level}.",
		"config.denied":           "`{command}` is now disabled in <#{channel}>.",
		"config.already_denied":   "`{command}` is already disabled in <#{channel}>.",
		"config.allowed":          "`{command}` is enabled again in <#{channel}>.",
		"config.not_denied":       "`{command}` is not disabled in <#{channel}>.",
		"config.unknown_command":  "Unknown command `{command}`.",

		"ping":           "Pong! Gateway: {gateway}, round trip: {rtt}.",
		"purge.done":     "Deleted {count} messages.",
		"purge.range":    "You can delete between 1 and {max} messages.",
		"reload.done":    "Configuration reloaded.",
		"reload.failed":  "Reload failed: {error}",
		"restart":        "Restarting...",
		"stats.title":    "Statistics",
		"stats.no_usage": "No commands used yet.",
	},
	"fr": {
		"lang.name": "Français",

		"scope.server": "sur ce serveur",
		"scope.text":   "dans ce salon",
		"scope.voice":  "dans le salon vocal",

		"error.permission.bot":  "J'ai besoin de la permission **{permission}** {scope} pour faire ça.",
		"error.permission.user": "Il vous faut la permission **{permission}** {scope} pour utiliser cette commande.",
		"error.voice.none":      "Rejoignez d'abord un salon vocal.",
		"error.voice.different": "Je joue déjà dans <#{channel}>.",
		"error.voice.full":      "Votre salon vocal est plein.",
		"error.generic":         "Une erreur est survenue. Identifiant : `{id}`",
		"error.denied":          "`{command}` est désactivée dans ce salon.",
		"error.ratelimited":     "Doucement ! Réessayez dans {seconds} s.",
		"error.owner":           "Seuls les propriétaires du bot peuvent utiliser cette commande.",
		"error.guild":           "Cette commande ne fonctionne que sur un serveur.",
		"error.option.missing":  "Option obligatoire manquante : `{option}`.",
		"error.option.invalid":  "Valeur invalide pour `{option}` : `{value}`.",

		"music.nothing_playing":  "Rien n'est en cours de lecture.",
		"music.loading":          "Le morceau en cours est encore en chargement, réessayez dans un instant.",
		"music.nothing_found":    "Aucun résultat pour **{query}**.",
		"music.unsupported":      "Je ne peux pas lire les liens de ce site.",
		"music.spotify_disabled": "Les liens Spotify ne sont pas activés sur ce bot.",
		"music.added":            "**{title}** ajouté à la file en position {position}.",
		"music.added_many":       "{count} morceaux ajoutés à la file.",
		"music.now_playing":      "En cours de lecture",
		"music.searching":        "Recherche de **{query}** sur YouTube...",
		"music.failed":           "Impossible de lire **{title}** : {error}",
		"music.requested_by":     "Demandé par {user}",
		"music.live":             "EN DIRECT",
		"music.skipped":          "{count} morceau(x) passé(s).",
		"music.seeked":           "Lecture à partir de {time}.",
		"music.not_seekable":     "Impossible de se déplacer dans un direct.",
		"music.bad_time":         "`{value}` n'est pas une durée valide. Utilisez des secondes, mm:ss ou hh:mm:ss.",
		"music.paused":           "En pause.",
		"music.already_paused":   "La lecture est déjà en pause.",
		"music.resumed":          "Lecture reprise.",
		"music.not_paused":       "La lecture n'est pas en pause.",
		"music.stopped":          "Lecture arrêtée et file vidée.",
		"music.left":             "J'ai quitté le salon vocal.",
		"music.not_connected":    "Je ne suis dans aucun salon vocal.",
		"music.loop_on":          "Répétition activée.",
		"music.loop_off":         "Répétition désactivée.",
		"music.shuffle_on":       "Lecture aléatoire activée.",
		"music.shuffle_off":      "Lecture aléatoire désactivée.",
		"music.removed":          "**{title}** retiré de la file.",
		"music.index_range":      "Il n'y a pas de morceau n°{index} dans la file.",
		"music.volume":           "Volume réglé à {volume} %.",
		"music.volume_current":   "Le volume est à {volume} %.",
		"music.queue_empty":      "La file est vide.",
		"music.queue_title":      "File d'attente",
		"music.queue_page":       "Page {page}/{pages}",
		"music.queue_footer":     "{count} morceaux · Répétition : {loop} · Aléatoire : {shuffle} · Volume : {volume} %",
		"music.on":               "oui",
		"music.off":              "non",

		"config.prefix":           "Préfixe défini sur `{prefix}`.",
		"config.prefix_current":   "Le préfixe est `{prefix}`.",
		"config.prefix_invalid":   "Le préfixe doit faire 1 à 5 caractères, sans espace.",
		"config.language":         "Langue définie sur {name}.",
		"config.language_invalid": "Langue non prise en charge. Disponibles : {languages}.",
		"config.defaultvolume":    "Volume par défaut réglé à {volume} %.",
		"config.telemetry":        "Niveau de télémétrie réglé à {level}.",
		"config.denied":           "`{command}` est maintenant désactivée dans <#{channel}>.",
		"config.already_denied":   "`{command}` est déjà désactivée dans <#{channel}>.",
		"config.allowed":          "`{command}` est de nouveau activée dans <#{channel}>.",
		"config.not_denied":       "`{command}` n'est pas désactivée dans <#{channel}>.",
		"config.unknown_command":  "Commande inconnue : `{command}`.",

		"ping":           "Pong ! Passerelle : {gateway}, aller-retour : {rtt}.",
		"purge.done":     "{count} messages supprimés.",
		"purge.range":    "Vous pouvez supprimer entre 1 et {max} messages.",
		"reload.done":    "Configuration rechargée.",
		"reload.failed":  "Échec du rechargement : {error}",
		"restart":        "Redémarrage...",
		"stats.title":    "Statistiques",
		"stats.no_usage": "Aucune commande utilisée pour l'instant.",
	},
}
