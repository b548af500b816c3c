package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"goflare.io/storefront/models/enum"
)

// User 目錄 API 的示範使用者, 也是個人資料編輯的對象
type User struct {
	ID       FlexibleID `json:"id"`
	Name     Name       `json:"name"`
	Username string     `json:"username,omitempty"`
	Email    string     `json:"email,omitempty"`
	Phone    string     `json:"phone,omitempty"`
	Address  *Address   `json:"address,omitempty"`
}

type Address struct {
	Geolocation *Geolocation `json:"geolocation,omitempty"`
	City        string       `json:"city,omitempty"`
	Street      string       `json:"street,omitempty"`
	Number      int          `json:"number,omitempty"`
	Zipcode     string       `json:"zipcode,omitempty"`
}

type Geolocation struct {
	Lat  string `json:"lat,omitempty"`
	Long string `json:"long,omitempty"`
}

// FlexibleID 接受 JSON 數字或字串, 一律以字串保存
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = FlexibleID(n.String())
	return nil
}

func (id FlexibleID) String() string {
	return string(id)
}

// Name 是姓名的兩種表示: 單一字串或名/姓分開
type Name struct {
	Kind  enum.NameKind
	Full  string
	First string
	Last  string
}

func SingleName(full string) Name {
	return Name{Kind: enum.NameKindSingle, Full: full}
}

func SplitName(first, last string) Name {
	return Name{Kind: enum.NameKindSplit, First: first, Last: last}
}

type splitName struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

func (n *Name) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*n = SingleName("")
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = SingleName(s)
	default:
		var sn splitName
		if err := json.Unmarshal(data, &sn); err != nil {
			return fmt.Errorf("name must be a string or {firstname, lastname}: %w", err)
		}
		*n = SplitName(sn.Firstname, sn.Lastname)
	}
	return nil
}

func (n Name) MarshalJSON() ([]byte, error) {
	if n.Kind == enum.NameKindSplit {
		return json.Marshal(splitName{Firstname: n.First, Lastname: n.Last})
	}
	return json.Marshal(n.Full)
}

func (n Name) Display() string {
	if n.Kind == enum.NameKindSplit {
		return strings.TrimSpace(n.First + " " + n.Last)
	}
	return n.Full
}

// UserEdit 個人資料編輯, nil 欄位表示不變更
type UserEdit struct {
	Name      *string
	FirstName *string
	LastName  *string
	Username  *string
	Email     *string
	Phone     *string
	Street    *string
	Number    *string
	City      *string
	Zipcode   *string
}

// ApplyEdit 回傳套用編輯後的副本.
// 單一姓名時 FirstName/LastName 不生效, 分開姓名時 Name 寫入名字;
// 地址欄位只在使用者已有地址時生效.
func (u User) ApplyEdit(edit UserEdit) (User, error) {
	out := u
	if u.Address != nil {
		addr := *u.Address
		out.Address = &addr
	}

	if edit.Name != nil {
		if out.Name.Kind == enum.NameKindSplit {
			out.Name.First = *edit.Name
		} else {
			out.Name = SingleName(*edit.Name)
		}
	}
	if out.Name.Kind == enum.NameKindSplit {
		if edit.FirstName != nil {
			out.Name.First = *edit.FirstName
		}
		if edit.LastName != nil {
			out.Name.Last = *edit.LastName
		}
	}
	if edit.Username != nil {
		out.Username = *edit.Username
	}
	if edit.Email != nil {
		out.Email = *edit.Email
	}
	if edit.Phone != nil {
		out.Phone = *edit.Phone
	}

	if out.Address == nil {
		return out, nil
	}
	if edit.Street != nil {
		out.Address.Street = *edit.Street
	}
	if edit.Number != nil {
		number, err := strconv.Atoi(strings.TrimSpace(*edit.Number))
		if err != nil {
			return u, fmt.Errorf("invalid street number %q: %w", *edit.Number, err)
		}
		out.Address.Number = number
	}
	if edit.City != nil {
		out.Address.City = *edit.City
	}
	if edit.Zipcode != nil {
		out.Address.Zipcode = *edit.Zipcode
	}
	return out, nil
}
