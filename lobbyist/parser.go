package lobbyist

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"cityetl/etlerrors"
)

// Структуры выгрузки реестра лоббистов: каждый ROW содержит один предмет
// лоббирования (SM) с регистрантом, фирмой-клиентом и списком коммуникаций.
// Имя корневого элемента не проверяется: выгрузки разных лет его меняли.
type activityExport struct {
	Rows []activityRow `xml:"ROW"`
}

type activityRow struct {
	SM *subjectMatter `xml:"SM"`
}

type subjectMatter struct {
	SMNumber       string          `xml:"SMNumber"`
	Status         string          `xml:"Status"`
	Type           string          `xml:"Type"`
	Particulars    string          `xml:"Particulars"`
	SubjectMatter  string          `xml:"SubjectMatter"`
	EffectiveDate  string          `xml:"EffectiveDate"`
	Registrant     *registrant     `xml:"Registrant"`
	Firm           *firm           `xml:"Firms>Firm"`
	Communications []communication `xml:"Communications>Communication"`
}

type registrant struct {
	FirstName string `xml:"FirstName"`
	LastName  string `xml:"LastName"`
}

type firm struct {
	Name string `xml:"Name"`
}

type communication struct {
	POHName string `xml:"POH_Name"`
	Date    string `xml:"CommunicationDate"`
}

// RawActivity одна сырая запись активности до нормализации: регистрация
// предмета лоббирования или отдельная коммуникация по нему
type RawActivity struct {
	SMNumber           string
	Status             string
	LobbyistType       string
	LobbyistName       string
	ClientName         string
	SubjectMatter      string
	SubjectCategories  string
	RegistrationDate   string
	CommunicationDate  string
	PublicOfficeHolder string
}

// charsetReader декодирует устаревшие однобайтовые кодировки, встречающиеся
// в декларациях старых выгрузок. UTF-8/UTF-16 декодер encoding/xml
// обрабатывает сам.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "windows-1252", "cp1252":
		return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
	case "iso-8859-1", "latin1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	case "us-ascii", "ascii":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported xml charset %q", charset)
}

// ParseActivityXML разбирает один XML-файл выгрузки. Предмет без коммуникаций
// даёт одну запись о регистрации; предмет с коммуникациями даёт по записи на
// каждую коммуникацию с непустой датой или именем должностного лица.
func ParseActivityXML(r io.Reader) ([]RawActivity, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var export activityExport
	if err := decoder.Decode(&export); err != nil {
		return nil, fmt.Errorf("decode lobbyist activity xml: %w", err)
	}

	var activities []RawActivity
	for _, row := range export.Rows {
		sm := row.SM
		if sm == nil {
			continue
		}

		base := RawActivity{
			SMNumber:          sm.SMNumber,
			Status:            sm.Status,
			LobbyistType:      sm.Type,
			SubjectMatter:     sm.Particulars,
			SubjectCategories: sm.SubjectMatter,
			RegistrationDate:  sm.EffectiveDate,
		}
		if sm.Registrant != nil {
			base.LobbyistName = strings.TrimSpace(sm.Registrant.FirstName + " " + sm.Registrant.LastName)
		}
		if sm.Firm != nil {
			base.ClientName = sm.Firm.Name
		}

		if len(sm.Communications) == 0 {
			activities = append(activities, base)
			continue
		}
		for _, comm := range sm.Communications {
			if comm.POHName == "" && comm.Date == "" {
				continue
			}
			activity := base
			activity.CommunicationDate = comm.Date
			activity.PublicOfficeHolder = comm.POHName
			activities = append(activities, activity)
		}
	}
	return activities, nil
}

// ParseArchive находит в ZIP-архиве выгрузки XML-файлы активности и разбирает
// их все. Предпочитаются файлы с "activity" в имени; при их отсутствии
// берутся любые XML. Файлы с ошибками разбора пропускаются с предупреждением.
func ParseArchive(zipPath string) ([]RawActivity, error) {
	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open lobbyist archive %s: %w", zipPath, err)
	}
	defer reader.Close()

	var preferred, fallback []*zip.File
	for _, file := range reader.File {
		name := strings.ToLower(path.Base(file.Name))
		if !strings.HasSuffix(name, ".xml") {
			continue
		}
		if strings.Contains(name, "activity") {
			preferred = append(preferred, file)
		} else {
			fallback = append(fallback, file)
		}
	}
	files := preferred
	if len(files) == 0 {
		files = fallback
	}
	if len(files) == 0 {
		return nil, etlerrors.NewResolutionError(zipPath, "no XML files found in archive")
	}

	var activities []RawActivity
	for _, file := range files {
		rc, err := file.Open()
		if err != nil {
			log.Printf("Warning: could not open %s: %v", file.Name, err)
			continue
		}
		parsed, err := ParseActivityXML(rc)
		rc.Close()
		if err != nil {
			log.Printf("Warning: could not parse %s: %v", file.Name, err)
			continue
		}
		activities = append(activities, parsed...)
	}

	if len(activities) == 0 {
		return nil, etlerrors.NewExtractionError(zipPath, "no activity records parsed from archive")
	}
	return activities, nil
}
